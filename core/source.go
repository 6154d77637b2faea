package core

import "context"

// DataSource 是批处理的数据来源（关系库的只读查询面）。
//
// 实现：
//   - store.SQLSource（postgres / pgx / mysql）
type DataSource interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// LoadCatalog 读取完整的内容目录，返回顺序即目录顺序
	LoadCatalog(ctx context.Context) ([]ContentItem, error)

	// LoadRatings 读取所有非空评分，返回顺序即读取顺序
	LoadRatings(ctx context.Context) ([]Rating, error)

	// LoadSnapshot 在同一个一致性视图内读取目录与评分，一轮计算只使用这一份快照
	LoadSnapshot(ctx context.Context) ([]ContentItem, []Rating, error)
}

// RecommendationSink 接收一轮计算的完整结果，分阶段替换旧结果。
//
// 约定：
//   - recs 已经在内存中完整生成，ID 为 1..N
//   - Stage 只写暂存区，读取方仍看到旧结果
//   - 引擎先 Stage 全部 sink，全部成功后才逐个 Commit；任一步失败则 Rollback 全部
//
// 实现：
//   - store.SQLSink（暂存表 + 换表）
//   - store.KVSink（版本化 key + 切换版本指针）
type RecommendationSink interface {
	Name() string
	Stage(ctx context.Context, recs []Recommendation, catalog []ContentItem) (StagedWrite, error)
}

// StagedWrite 是一份已暂存、尚未发布的结果。
type StagedWrite interface {
	// Commit 让新结果对读取方可见，被替换的旧结果保留到 Finish
	Commit(ctx context.Context) error

	// Rollback 丢弃新结果；已 Commit 时先恢复旧结果
	Rollback(ctx context.Context) error

	// Finish 删除被替换的旧结果，只在全部 sink 都 Commit 之后调用
	Finish(ctx context.Context) error
}

// RecommendationReader 是推荐结果的读取面。
type RecommendationReader interface {
	// ForUser 返回用户的推荐，按分数降序，最多 limit 条；没有结果时返回空切片
	ForUser(ctx context.Context, userID int64, limit int) ([]Recommendation, error)
}
