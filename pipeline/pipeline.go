package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// Pipeline 把单个用户的推荐逻辑拆成可组合的 Node 链：
// 候选 → 过滤 → 打分排序 → 截断 → 解释。
type Pipeline struct {
	Name  string
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
