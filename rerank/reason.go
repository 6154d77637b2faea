package rerank

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// DefaultReason 是写入每条推荐的解释文本。
const DefaultReason = "Based on your preferences"

// ReasonLabel 是承载推荐解释的 Label key。
const ReasonLabel = "reason"

// ReasonNode 为每个内容写入固定的推荐解释（覆盖已有值）。
type ReasonNode struct {
	Reason string
}

func (n *ReasonNode) Name() string        { return "rerank.reason" }
func (n *ReasonNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *ReasonNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	reason := n.Reason
	if reason == "" {
		reason = DefaultReason
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		it.SetLabel(ReasonLabel, utils.Label{Value: reason, Source: "rerank"})
	}
	return items, nil
}
