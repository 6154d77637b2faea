package recall

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/feature"
	"github.com/rushteam/hybridrec/pkg/matrix"
)

// ContentModel 是基于内容的相似度模型（Content-Based Similarity）。
//
// 核心思想："属性相近的内容，彼此相似"
//
// 算法流程：
//  1. 目录 → 特征向量（genre multi-hot + 归一化情绪/观感画像）
//  2. 所有内容两两计算余弦相似度
//
// 输出矩阵行列均以目录 ID 索引（目录顺序），对称；非零向量的自相似度为 1。
type ContentModel struct{}

func (m *ContentModel) Name() string {
	return "similarity.content"
}

// Similarity 计算内容相似度矩阵
func (m *ContentModel) Similarity(vecs *feature.Vectors) (*matrix.Dense, error) {
	if vecs == nil || vecs.Matrix == nil || vecs.Matrix.Rows() == 0 {
		return nil, core.ErrNoContent
	}
	return matrix.CosineSimilarity(vecs.Matrix), nil
}
