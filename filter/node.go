package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
// 输出保持输入顺序。
type FilterNode struct {
	Filters []Filter

	// Strict 为 true 时过滤器出错直接中断；默认记录后跳过该过滤器
	Strict bool
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				if n.Strict {
					return nil, err
				}
				logging.Ctx(ctx).Warn().Err(err).Str("filter", f.Name()).Int64("item_id", item.ID).Msg("filter failed, skipped")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	return out, nil
}
