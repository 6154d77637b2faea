package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/hybridrec/core"
)

var _ core.KeyValueStore = (*MemoryStore)(nil)

// MemoryStore 是进程内的 KeyValueStore，用于测试、示例和不部署 Redis 的单机服务。
// 过期的 key 在读取时视为不存在，并在下一次写入时清理。
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]memValue
	zsets  map[string]map[string]float64
	now    func() time.Time
}

type memValue struct {
	data     []byte
	expireAt time.Time // 零值表示不过期
}

func (v memValue) expired(now time.Time) bool {
	return !v.expireAt.IsZero() && now.After(v.expireAt)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]memValue),
		zsets:  make(map[string]map[string]float64),
		now:    time.Now,
	}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok || v.expired(m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return v.data, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()
	m.values[key] = memValue{data: value, expireAt: m.expireAt(ttl)}
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok && !v.expired(now) {
			out[k] = v.data
		}
	}
	return out, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked()
	exp := m.expireAt(ttl)
	for k, data := range kvs {
		m.values[k] = memValue{data: data, expireAt: exp}
	}
	return nil
}

// Delete 删除普通 key 与同名的有序集合。
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
		delete(m.zsets, k)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zs, ok := m.zsets[key]
	if !ok {
		zs = make(map[string]float64)
		m.zsets[key] = zs
	}
	zs[member] = score
	return nil
}

// ZRange 按分数降序返回 [start, stop] 区间的成员，stop < 0 表示到末尾。
// 同分按 member 降序，与 Redis ZREVRANGE 一致。
func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	scored, err := m.ZRangeWithScores(ctx, key, start, stop)
	if err != nil || len(scored) == 0 {
		return nil, err
	}
	members := make([]string, len(scored))
	for i, sm := range scored {
		members[i] = sm.Member
	}
	return members, nil
}

func (m *MemoryStore) ZRangeWithScores(_ context.Context, key string, start, stop int64) ([]core.ScoredMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zs := m.zsets[key]
	all := make([]core.ScoredMember, 0, len(zs))
	for member, score := range zs {
		all = append(all, core.ScoredMember{Member: member, Score: score})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Member > all[j].Member
	})

	n := int64(len(all))
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	return all[start : stop+1], nil
}

func (m *MemoryStore) ZScore(_ context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.zsets[key][member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}

// Keys 返回当前所有未过期的 key（含有序集合），按字典序排序。
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	keys := make([]string, 0, len(m.values)+len(m.zsets))
	for k, v := range m.values {
		if !v.expired(now) {
			keys = append(keys, k)
		}
	}
	for k := range m.zsets {
		if _, ok := m.values[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryStore) expireAt(ttl []int) time.Time {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return time.Time{}
	}
	return m.now().Add(time.Duration(ttl[0]) * time.Second)
}

func (m *MemoryStore) purgeLocked() {
	now := m.now()
	for k, v := range m.values {
		if v.expired(now) {
			delete(m.values, k)
		}
	}
}
