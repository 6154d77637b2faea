package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// RatedFilter 过滤用户已经评分过的内容（seen set）。
type RatedFilter struct{}

func (f *RatedFilter) Name() string {
	return "filter.rated"
}

func (f *RatedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}
	_, seen := rctx.Rated(item.ID)
	return seen, nil
}
