package recall

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// CatalogRecall 把本轮目录中的所有内容作为候选，顺序与目录一致。
// 目录顺序是后续稳定排序的同分裁决依据。
type CatalogRecall struct{}

func (r *CatalogRecall) Name() string        { return "recall.catalog" }
func (r *CatalogRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *CatalogRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *CatalogRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || len(rctx.Catalog) == 0 {
		return nil, nil
	}
	out := make([]*core.Item, 0, len(rctx.Catalog))
	for _, id := range rctx.Catalog {
		it := core.NewItem(id)
		if c, ok := rctx.Content[id]; ok && c != nil {
			it.Meta["title"] = c.Title
			it.Meta["genre"] = c.Genre
			it.Meta["popularity"] = c.Popularity
			it.Meta["avg_rating"] = c.AvgRating
		}
		it.PutLabel("recall_source", utils.Label{Value: "catalog", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
