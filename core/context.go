package core

import "github.com/rushteam/hybridrec/pkg/utils"

// SimilarityLookup 按内容 ID 查询两两相似度，由 matrix.Dense 实现。
// ok=false 表示任一 ID 不在索引中。
type SimilarityLookup interface {
	Lookup(rowID, colID int64) (float64, bool)
}

// RecommendContext 承载单个用户一次计算所需的全部输入，贯穿整个 Pipeline 透传。
//
// 与在线推荐不同，这里的上下文是批处理作用域的：
//   - Ratings 是用户的已评分集合（读取顺序），即 "seen set"
//   - Catalog 是候选全集（目录顺序），决定同分时的排序
//   - Similarity 是本轮计算好的 hybrid 相似度矩阵
//
// 除 Labels 与内部缓存外，字段在各用户之间共享，Node 不得修改。
type RecommendContext struct {
	UserID int64

	Ratings    []Rating
	Catalog    []int64
	Similarity SimilarityLookup

	// Content 是目录条目（只读，整轮共享），用于给候选附加元信息
	Content map[int64]*ContentItem

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 CEL 表达式中可访问的自定义变量
	Params map[string]any

	rated map[int64]float64
}

// Rated 返回用户对 itemID 的评分；未评分时 ok=false。
func (rctx *RecommendContext) Rated(itemID int64) (float64, bool) {
	if rctx.rated == nil {
		rctx.rated = make(map[int64]float64, len(rctx.Ratings))
		for _, r := range rctx.Ratings {
			rctx.rated[r.ItemID] = r.Score
		}
	}
	score, ok := rctx.rated[itemID]
	return score, ok
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
