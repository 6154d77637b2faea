package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// SQLReader 从推荐表读取单个用户的推荐。
type SQLReader struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

func NewSQLReader(db *sql.DB, dialect Dialect, table string) *SQLReader {
	return &SQLReader{db: db, dialect: dialect, table: table}
}

// ForUser 按分数降序返回，同分按 id 升序（即写入顺序）。
func (r *SQLReader) ForUser(ctx context.Context, userID int64, limit int) ([]core.Recommendation, error) {
	if limit <= 0 {
		return []core.Recommendation{}, nil
	}
	query := fmt.Sprintf(
		"SELECT id, user_id, content_id, score, reason FROM %s WHERE user_id = %s ORDER BY score DESC, id ASC LIMIT %d",
		r.dialect.Quote(r.table), r.dialect.Placeholder(1), limit,
	)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: query recommendations", err)
	}
	defer rows.Close()

	out := make([]core.Recommendation, 0, limit)
	for rows.Next() {
		var rec core.Recommendation
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ItemID, &rec.Score, &rec.Reason); err != nil {
			return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: scan recommendations", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: read recommendations", err)
	}
	return out, nil
}

var _ core.RecommendationReader = (*SQLReader)(nil)
