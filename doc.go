// Package hybridrec 是内容 + 协同过滤的混合推荐批处理引擎。
//
// 设计要点：
// - 一轮计算基于一份目录与评分快照：特征 → 内容相似度 → 协同相似度 → α 混合 → 打分
// - 每个用户的打分通过 Pipeline 串联（Recall → Filter → Rank → ReRank → PostProcess）
// - Labels-first: 排序依据、解释文本等以 label 形式透传
// - 结果两阶段发布：写完整份新结果再切换，失败时旧结果保持可见
package hybridrec

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// 轻量 facade：便于直接 import "hybridrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

type Recommendation = core.Recommendation
type ContentItem = core.ContentItem

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
