package store

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/rushteam/hybridrec/core"
)

// Dialect 屏蔽 postgres 与 mysql 在标识符、占位符、换表语句上的差异。
type Dialect interface {
	Name() string
	Quote(ident string) string
	// Placeholder 返回第 n 个参数的占位符（从 1 开始）
	Placeholder(n int) string
	// RecommendationsDDL 返回推荐表的建表语句
	RecommendationsDDL(table string) string
	// SwapStatements 返回把 staging 换成 live、原 live 改名为 old 的语句，执行前 live 与 staging 必须存在。
	// 参数互换 (live, old, staging) 即为回滚语句
	SwapStatements(live, staging, old string) []string
	// TransactionalDDL 表示换表语句能否放在同一个事务里
	TransactionalDDL() bool
}

// DialectFor 按驱动名返回 Dialect。
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported, fmt.Sprintf("store: unsupported sql driver %q", driver))
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Quote(ident string) string { return pq.QuoteIdentifier(ident) }
func (postgresDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }
func (postgresDialect) TransactionalDDL() bool    { return true }

func (d postgresDialect) RecommendationsDDL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + d.Quote(table) + ` (
	id BIGINT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	content_id BIGINT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL
)`
}

func (d postgresDialect) SwapStatements(live, staging, old string) []string {
	return []string{
		"DROP TABLE IF EXISTS " + d.Quote(old),
		"ALTER TABLE " + d.Quote(live) + " RENAME TO " + d.Quote(old),
		"ALTER TABLE " + d.Quote(staging) + " RENAME TO " + d.Quote(live),
	}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(int) string { return "?" }
func (mysqlDialect) TransactionalDDL() bool { return false }

func (d mysqlDialect) RecommendationsDDL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + d.Quote(table) + ` (
	id BIGINT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	content_id BIGINT NOT NULL,
	score DOUBLE NOT NULL,
	reason TEXT NOT NULL
)`
}

// SwapStatements 使用单条 RENAME TABLE，mysql 保证其原子性。
func (d mysqlDialect) SwapStatements(live, staging, old string) []string {
	return []string{
		"DROP TABLE IF EXISTS " + d.Quote(old),
		"RENAME TABLE " + d.Quote(live) + " TO " + d.Quote(old) + ", " + d.Quote(staging) + " TO " + d.Quote(live),
	}
}
