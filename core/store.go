package core

import "context"

// Store 是 KV 存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 推荐结果的服务缓存（按版本分区写入，再切换版本指针）
//   - 热门兜底列表
//
// 实现：
//   - store.MemoryStore 实现此接口
//   - store.RedisStore 实现此接口
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除 key（包括同名的有序集合）
	Delete(ctx context.Context, keys ...string) error

	// BatchGet 批量读取，减少网络往返
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持有序集合。
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员（用于推荐列表、热门排序）
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员，start/stop 为闭区间下标
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZRangeWithScores 与 ZRange 相同，但同时返回分数，一次往返
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)

	// ZScore 获取成员的分数
	ZScore(ctx context.Context, key string, member string) (float64, error)
}

// ScoredMember 是有序集合中的一个成员及其分数。
type ScoredMember struct {
	Member string
	Score  float64
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
