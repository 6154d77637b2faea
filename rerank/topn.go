package rerank

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// DefaultTopN 是每个用户保留的推荐数量。
const DefaultTopN = 20

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个内容。
// 通常在排序（Rank）节点之后使用。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        rank.NewHybridCFNode(),        // 排序
//	        &rerank.TopNNode{N: 20},       // 截取 Top 20
//	        &rerank.ReasonNode{Reason: "..."},
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量；N <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
