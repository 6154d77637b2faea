package recall

import (
	"context"
	"sort"
	"strconv"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Hot 是热门召回源，用作没有评分的新用户的兜底（冷启动）。
//   - Store 非空时从有序集合 Key 读取（按热度降序）
//   - 否则使用内存中的 IDs 作为 fallback
//
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Hot struct {
	Store core.KeyValueStore
	Key   string  // 有序集合 key，例如 "hybridrec:v42:hot"
	KeyFn func(ctx context.Context) (string, error)
	IDs   []int64 // fallback 内存列表，已按热度降序
	Limit int     // 读取上限，默认 100
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口，返回的 Item.Score 为热度
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 100
	}

	var out []*core.Item
	if r.Store != nil {
		key := r.Key
		if r.KeyFn != nil {
			k, err := r.KeyFn(ctx)
			if err != nil && !core.IsStoreNotFound(err) {
				return nil, err
			}
			key = k
		}
		if key != "" {
			members, err := r.scored(ctx, key, limit)
			if err != nil && !core.IsStoreNotFound(err) {
				return nil, err
			}
			out = make([]*core.Item, 0, len(members))
			for _, m := range members {
				id, err := strconv.ParseInt(m.Member, 10, 64)
				if err != nil {
					continue
				}
				it := core.NewItem(id)
				it.Score = m.Score
				out = append(out, it)
			}
			sortByPopularity(out, func(it *core.Item) (float64, int64) { return it.Score, it.ID })
			if len(out) > limit {
				out = out[:limit]
			}
		}
	}

	// Fallback：使用内存 IDs
	if len(out) == 0 {
		ids := r.IDs
		if len(ids) > limit {
			ids = ids[:limit]
		}
		out = make([]*core.Item, 0, len(ids))
		for _, id := range ids {
			out = append(out, core.NewItem(id))
		}
	}

	for _, it := range out {
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	}
	return out, nil
}

// scored 读取前 limit 个成员；截断处同分的成员也一并读出，
// 以便按 ID 重新排序后与 PopularityOrder 的结果一致。
func (r *Hot) scored(ctx context.Context, key string, limit int) ([]core.ScoredMember, error) {
	page := int64(limit)
	out, err := r.Store.ZRangeWithScores(ctx, key, 0, page-1)
	if err != nil || int64(len(out)) < page {
		return out, err
	}
	boundary := out[len(out)-1].Score
	for offset := page; ; offset += page {
		next, err := r.Store.ZRangeWithScores(ctx, key, offset, offset+page-1)
		if err != nil {
			return nil, err
		}
		for _, m := range next {
			if m.Score != boundary {
				return out, nil
			}
			out = append(out, m)
		}
		if int64(len(next)) < page {
			return out, nil
		}
	}
}

// PopularityOrder 按热度降序返回目录 ID，同热度按 ID 升序。
func PopularityOrder(catalog []core.ContentItem) []int64 {
	items := make([]core.ContentItem, len(catalog))
	copy(items, catalog)
	sortByPopularity(items, func(it core.ContentItem) (float64, int64) { return it.Popularity, it.ID })
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func sortByPopularity[T any](s []T, key func(T) (float64, int64)) {
	sort.SliceStable(s, func(i, j int) bool {
		pi, idi := key(s[i])
		pj, idj := key(s[j])
		if pi != pj {
			return pi > pj
		}
		return idi < idj
	})
}
