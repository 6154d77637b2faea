package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/logging"
)

// DefaultInsertBatch 是每条 INSERT 语句携带的行数。
const DefaultInsertBatch = 500

// SQLSink 以两阶段方式整体替换推荐表：
//  1. Stage：重建暂存表 <table>_staging 并在事务中写入全部结果
//  2. Commit：确保正式表存在，用换表语句把暂存表换成正式表，原表改名为 <table>_old
//  3. Finish：删除 <table>_old；Rollback 在 Commit 之后会把 <table>_old 换回来
//
// Commit 之前正式表不受影响；表结构随每次运行重建，不保留外键。
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	table   string
	batch   int
}

// NewSQLSink 创建推荐表 sink；db 由调用方负责关闭。
func NewSQLSink(db *sql.DB, dialect Dialect, table string) *SQLSink {
	return &SQLSink{db: db, dialect: dialect, table: table, batch: DefaultInsertBatch}
}

// WithBatchSize 设置每条 INSERT 的行数。
func (s *SQLSink) WithBatchSize(n int) *SQLSink {
	if n > 0 {
		s.batch = n
	}
	return s
}

func (s *SQLSink) Name() string { return "sql." + s.dialect.Name() + "." + s.table }

func (s *SQLSink) stagingTable() string { return s.table + "_staging" }
func (s *SQLSink) oldTable() string     { return s.table + "_old" }

// Stage 实现 core.RecommendationSink。
func (s *SQLSink) Stage(ctx context.Context, recs []core.Recommendation, _ []core.ContentItem) (core.StagedWrite, error) {
	if err := s.fill(ctx, recs); err != nil {
		s.dropQuietly(ctx, s.stagingTable())
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: stage recommendations", err)
	}
	logging.Ctx(ctx).Debug().Str("sink", s.Name()).Int("rows", len(recs)).Msg("staging table written")
	return &sqlStaged{sink: s, rows: len(recs)}, nil
}

// Replace 依次执行 Stage、Commit、Finish，适合只有一个 sink 的场景。
func (s *SQLSink) Replace(ctx context.Context, recs []core.Recommendation, catalog []core.ContentItem) error {
	return replace(ctx, s, recs, catalog)
}

func (s *SQLSink) fill(ctx context.Context, recs []core.Recommendation) error {
	staging := s.stagingTable()
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.Quote(staging)); err != nil {
		return fmt.Errorf("drop staging: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.RecommendationsDDL(staging)); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(recs); start += s.batch {
		end := min(start+s.batch, len(recs))
		query, args := s.insertStatement(staging, recs[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
	}
	return tx.Commit()
}

func (s *SQLSink) insertStatement(table string, recs []core.Recommendation) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.dialect.Quote(table))
	b.WriteString(" (id, user_id, content_id, score, reason) VALUES ")

	args := make([]any, 0, len(recs)*5)
	for i, r := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < 5; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.dialect.Placeholder(len(args) + j + 1))
		}
		b.WriteByte(')')
		args = append(args, r.ID, r.UserID, r.ItemID, r.Score, r.Reason)
	}
	return b.String(), args
}

// exec 执行一组语句；方言支持时放在同一个事务里。
func (s *SQLSink) exec(ctx context.Context, stmts []string) error {
	if !s.dialect.TransactionalDDL() {
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLSink) dropQuietly(ctx context.Context, table string) {
	if _, err := s.db.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+s.dialect.Quote(table)); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("table", table).Msg("failed to drop table")
	}
}

type sqlStaged struct {
	sink      *SQLSink
	rows      int
	committed bool
}

func (w *sqlStaged) Commit(ctx context.Context) error {
	s := w.sink
	if _, err := s.db.ExecContext(ctx, s.dialect.RecommendationsDDL(s.table)); err != nil {
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: ensure recommendations table", err)
	}
	if err := s.exec(ctx, s.dialect.SwapStatements(s.table, s.stagingTable(), s.oldTable())); err != nil {
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: swap recommendations table", err)
	}
	w.committed = true
	logging.Ctx(ctx).Info().Str("sink", s.Name()).Int("rows", w.rows).Msg("recommendations table replaced")
	return nil
}

func (w *sqlStaged) Rollback(ctx context.Context) error {
	s := w.sink
	ctx = context.WithoutCancel(ctx)
	if w.committed {
		if err := s.exec(ctx, s.dialect.SwapStatements(s.table, s.oldTable(), s.stagingTable())); err != nil {
			return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: restore recommendations table", err)
		}
		w.committed = false
		logging.Ctx(ctx).Warn().Str("sink", s.Name()).Msg("previous recommendations table restored")
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.Quote(s.stagingTable())); err != nil {
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: drop staging table", err)
	}
	return nil
}

// Finish 删除被替换的旧表；新表此时已经可见，失败只影响磁盘占用。
func (w *sqlStaged) Finish(ctx context.Context) error {
	s := w.sink
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.dialect.Quote(s.oldTable())); err != nil {
		return fmt.Errorf("drop %s: %w", s.oldTable(), err)
	}
	return nil
}

var _ core.RecommendationSink = (*SQLSink)(nil)
