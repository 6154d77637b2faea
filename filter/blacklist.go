package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// BlacklistFilter 过滤掉配置中列出的内容 ID。
type BlacklistFilter struct {
	ids map[int64]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器；itemIDs 为空时不过滤任何内容。
func NewBlacklistFilter(itemIDs []int64) *BlacklistFilter {
	ids := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, ok := f.ids[item.ID]
	return ok, nil
}
