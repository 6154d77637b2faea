package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rushteam/hybridrec/core"
)

// queryer 是 *sql.DB 与 *sql.Tx 共有的读接口。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLSource 从关系库读取目录与评分快照。
//
// 目录按 id 升序读取，评分按 (user_id, content_id) 升序读取，
// 保证两次运行之间目录顺序、用户顺序稳定。
type SQLSource struct {
	db      *sql.DB
	dialect Dialect
	tables  Tables
}

// NewSQLSource 创建数据源；db 由调用方负责关闭。
func NewSQLSource(db *sql.DB, dialect Dialect, tables Tables) *SQLSource {
	return &SQLSource{db: db, dialect: dialect, tables: tables}
}

func (s *SQLSource) Name() string { return "sql." + s.dialect.Name() }

func (s *SQLSource) catalogQuery() string {
	return fmt.Sprintf(
		"SELECT id, title, genre, emotional_cloud, perception_map, hype_index, avg_rating FROM %s ORDER BY id",
		s.dialect.Quote(s.tables.Catalog),
	)
}

func (s *SQLSource) ratingsQuery() string {
	return fmt.Sprintf(
		"SELECT user_id, content_id, rating FROM %s WHERE rating IS NOT NULL ORDER BY user_id, content_id",
		s.dialect.Quote(s.tables.Ratings),
	)
}

// LoadSnapshot 在一个只读、可重复读的事务里依次读取目录与评分，
// 两份数据来自同一个数据库快照。
func (s *SQLSource) LoadSnapshot(ctx context.Context) ([]core.ContentItem, []core.Rating, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: begin snapshot", err)
	}
	defer tx.Rollback()

	catalog, err := s.loadCatalog(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	ratings, err := s.loadRatings(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: end snapshot", err)
	}
	return catalog, ratings, nil
}

// LoadCatalog 读取完整目录。空字段按缺失处理：
// 类型串为空，画像无法解析时所有轴为 0，热度与均分为 0。
func (s *SQLSource) LoadCatalog(ctx context.Context) ([]core.ContentItem, error) {
	return s.loadCatalog(ctx, s.db)
}

func (s *SQLSource) loadCatalog(ctx context.Context, q queryer) ([]core.ContentItem, error) {
	rows, err := q.QueryContext(ctx, s.catalogQuery())
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: query catalog", err)
	}
	defer rows.Close()

	var out []core.ContentItem
	for rows.Next() {
		var (
			id                    int64
			title, genre          sql.NullString
			emotions, perception  sql.NullString
			popularity, avgRating sql.NullFloat64
		)
		if err := rows.Scan(&id, &title, &genre, &emotions, &perception, &popularity, &avgRating); err != nil {
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: scan catalog", err)
		}
		out = append(out, core.ContentItem{
			ID:         id,
			Title:      title.String,
			Genre:      genre.String,
			Emotions:   profileColumn(emotions),
			Perception: profileColumn(perception),
			Popularity: popularity.Float64,
			AvgRating:  avgRating.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: read catalog", err)
	}
	return out, nil
}

// LoadRatings 读取所有非空评分。
func (s *SQLSource) LoadRatings(ctx context.Context) ([]core.Rating, error) {
	return s.loadRatings(ctx, s.db)
}

func (s *SQLSource) loadRatings(ctx context.Context, q queryer) ([]core.Rating, error) {
	rows, err := q.QueryContext(ctx, s.ratingsQuery())
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: query ratings", err)
	}
	defer rows.Close()

	var out []core.Rating
	for rows.Next() {
		var r core.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Score); err != nil {
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: scan ratings", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: read ratings", err)
	}
	return out, nil
}

// ContentByIDs 按 ID 读取标题与类型，供读取面展示；不存在的 ID 不出现在结果里。
func (s *SQLSource) ContentByIDs(ctx context.Context, ids []int64) (map[int64]core.ContentItem, error) {
	out := make(map[int64]core.ContentItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = s.dialect.Placeholder(i + 1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT id, title, genre FROM %s WHERE id IN (%s)",
		s.dialect.Quote(s.tables.Catalog), strings.Join(marks, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: query content", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id           int64
			title, genre sql.NullString
		)
		if err := rows.Scan(&id, &title, &genre); err != nil {
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: scan content", err)
		}
		out[id] = core.ContentItem{ID: id, Title: title.String, Genre: genre.String}
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: read content", err)
	}
	return out, nil
}

func profileColumn(v sql.NullString) core.Profile {
	if !v.Valid {
		return core.ProfileInput{}.Resolve()
	}
	return core.ProfileText(v.String).Resolve()
}

var _ core.DataSource = (*SQLSource)(nil)
