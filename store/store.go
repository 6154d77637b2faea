// Package store 提供 core 中存储接口的实现：
//   - MemoryStore / RedisStore：core.KeyValueStore
//   - SQLSource：core.DataSource（postgres / pgx / mysql）
//   - SQLSink / KVSink：core.RecommendationSink（两阶段替换）
//   - SQLReader / KVReader：core.RecommendationReader
//
// 接口定义在 core 包。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rushteam/hybridrec/core"
)

// Tables 是批处理读写的表名。
type Tables struct {
	Catalog         string
	Ratings         string
	Recommendations string
}

// DefaultTables 与线上库的表名一致。
func DefaultTables() Tables {
	return Tables{
		Catalog:         "content",
		Ratings:         "reviews",
		Recommendations: "recommendations",
	}
}

// OpenSQL 按驱动名打开连接并 Ping；driver 为 postgres（lib/pq）、pgx 或 mysql。
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := DialectFor(driver); err != nil {
		return nil, err
	}
	driver = strings.ToLower(driver)
	if driver == "postgresql" {
		driver = "postgres"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: database unreachable", err)
	}
	return db, nil
}
