package store

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// KVReader 读取 KVSink 当前版本的推荐。
type KVReader struct {
	store core.KeyValueStore
	keys  keyspace
}

func NewKVReader(store core.KeyValueStore, prefix string) *KVReader {
	if prefix == "" {
		prefix = "hybridrec"
	}
	return &KVReader{store: store, keys: keyspace{prefix: prefix}}
}

// Version 返回当前版本号；尚未发布任何版本时返回 core.ErrStoreNotFound。
func (r *KVReader) Version(ctx context.Context) (string, error) {
	data, err := r.store.Get(ctx, r.keys.current())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HotKey 返回当前版本的热门有序集合 key，可作为 recall.Hot 的 KeyFn。
func (r *KVReader) HotKey(ctx context.Context) (string, error) {
	ver, err := r.Version(ctx)
	if err != nil {
		return "", err
	}
	return r.keys.hot(ver), nil
}

// ForUser 实现 core.RecommendationReader；没有版本或用户没有推荐时返回空切片。
func (r *KVReader) ForUser(ctx context.Context, userID int64, limit int) ([]core.Recommendation, error) {
	ver, err := r.Version(ctx)
	if core.IsStoreNotFound(err) {
		return []core.Recommendation{}, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := r.store.Get(ctx, r.keys.user(ver, userID))
	if core.IsStoreNotFound(err) {
		return []core.Recommendation{}, nil
	}
	if err != nil {
		return nil, err
	}

	var recs []core.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInternalError, "store: decode recommendations", err)
	}
	if limit >= 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	if recs == nil {
		recs = []core.Recommendation{}
	}
	return recs, nil
}

var _ core.RecommendationReader = (*KVReader)(nil)
