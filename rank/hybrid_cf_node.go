package rank

import (
	"context"
	"sort"
	"strconv"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// DefaultSimilarityThreshold 是参与打分的最小相似度（严格大于）。
const DefaultSimilarityThreshold = 0.1

// HybridCFNode 用 hybrid 相似度对候选打分（item-based 加权平均）：
//
//	score(c) = Σ sim(c,s)·rating(s) / Σ sim(c,s)，s ∈ seen 且 sim(c,s) > Threshold
//
// 没有任何 seen 内容超过阈值时分数为 0。
// - 写入 labels：rank_model、rank_support（参与打分的 seen 数量）
// - 按分数降序稳定排序，同分保持输入（目录）顺序
type HybridCFNode struct {
	Threshold float64
}

// NewHybridCFNode 使用默认阈值创建打分 Node。
func NewHybridCFNode() *HybridCFNode {
	return &HybridCFNode{Threshold: DefaultSimilarityThreshold}
}

func (n *HybridCFNode) Name() string        { return "rank.hybrid_cf" }
func (n *HybridCFNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *HybridCFNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	if rctx == nil || rctx.Similarity == nil {
		return nil, core.NewDomainError(core.ModuleHybrid, core.ErrorCodeInvalidInput, "rank: similarity matrix is missing")
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		score, support := n.Score(rctx, it.ID)
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: "hybrid_cf", Source: "rank"})
		it.PutLabel("rank_support", utils.Label{Value: strconv.Itoa(support), Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// Score 计算单个候选的分数，support 为超过阈值的 seen 内容数量。
// 不在相似度索引中的 seen 内容被忽略。
func (n *HybridCFNode) Score(rctx *core.RecommendContext, candidate int64) (score float64, support int) {
	var num, den float64
	for _, r := range rctx.Ratings {
		sim, ok := rctx.Similarity.Lookup(candidate, r.ItemID)
		if !ok || sim <= n.Threshold {
			continue
		}
		num += sim * r.Score
		den += sim
		support++
	}
	if den == 0 {
		return 0, support
	}
	return num / den, support
}
