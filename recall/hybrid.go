package recall

import (
	"errors"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/matrix"
)

// DefaultCollaborativeWeight 是有评分时协同过滤矩阵的权重
const DefaultCollaborativeWeight = 0.7

// Hybridizer 按数据可用性把两个相似度矩阵加权合并：
//
//	hybrid = α·collaborative + (1-α)·content
//
// α 是整轮计算唯一的全局标量：系统中至少有一条评分时取 CollaborativeWeight，否则为 0（纯内容）。
type Hybridizer struct {
	// CollaborativeWeight 有评分时的 α，<= 0 时使用 DefaultCollaborativeWeight
	CollaborativeWeight float64
}

func (h *Hybridizer) Name() string {
	return "similarity.hybrid"
}

// Alpha 根据评分数量决定 α
func (h *Hybridizer) Alpha(ratingCount int) float64 {
	if ratingCount == 0 {
		return 0
	}
	if h.CollaborativeWeight <= 0 {
		return DefaultCollaborativeWeight
	}
	return h.CollaborativeWeight
}

// Combine 合并两个矩阵。
//
// collaborative 先显式 reindex 到 content 的行列顺序；两者 ID 集合不一致时
// 在任何运算之前返回 core.ErrIndexMismatch。
func (h *Hybridizer) Combine(content, collaborative *matrix.Dense, alpha float64) (*matrix.Dense, error) {
	if content == nil || collaborative == nil {
		return nil, core.ErrIndexMismatch
	}
	if content.ColIndex() == nil || collaborative.ColIndex() == nil {
		return nil, core.ErrIndexMismatch
	}
	if !content.RowIndex().SameSet(content.ColIndex()) {
		return nil, core.ErrIndexMismatch
	}
	aligned, err := collaborative.Reindex(content.RowIndex(), content.ColIndex())
	if err != nil {
		return nil, misaligned(err)
	}
	out, err := matrix.WeightedSum(aligned, content, alpha, 1-alpha)
	if err != nil {
		return nil, misaligned(err)
	}
	return out, nil
}

func misaligned(err error) error {
	if errors.Is(err, matrix.ErrMisaligned) {
		return core.WrapDomainError(core.ModuleHybrid, core.ErrorCodeMisaligned, core.ErrIndexMismatch.Message, err)
	}
	return err
}
