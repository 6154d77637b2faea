package recall

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/matrix"
)

// ItemBasedCF 是基于物品的协同过滤相似度模型（Item-based Collaborative Filtering, Item-CF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 算法流程：
//  1. 构建 用户 × 物品 评分矩阵：行是评分中出现的用户，列是完整目录，未评分为 0
//  2. 转置为 物品 × 用户
//  3. 物品两两计算余弦相似度
//
// 工程特征：
//  - 没有任何评分的物品：与所有物品（包括自己）相似度为 0，这是定义行为而非错误
//  - 系统中没有任何评分：返回以目录为索引的全零矩阵，而不是跳过
//  - 评分中出现、目录中不存在的物品被忽略
type ItemBasedCF struct{}

func (r *ItemBasedCF) Name() string {
	return "similarity.i2i"
}

// Similarity 计算物品相似度矩阵，catalog 决定行列索引及顺序
func (r *ItemBasedCF) Similarity(catalog *matrix.Index, ratings *core.RatingSet) (*matrix.Dense, error) {
	if catalog.Len() == 0 {
		return nil, core.ErrNoContent
	}
	if ratings.Empty() {
		return matrix.NewDense(catalog, catalog), nil
	}

	users, err := matrix.NewIndex(ratings.Users())
	if err != nil {
		return nil, err
	}
	userItem := matrix.NewDense(users, catalog)
	for i, userID := range users.IDs() {
		for _, rt := range ratings.ForUser(userID) {
			j, ok := catalog.Pos(rt.ItemID)
			if !ok {
				continue
			}
			userItem.Set(i, j, rt.Score)
		}
	}

	itemUser, err := userItem.Transpose()
	if err != nil {
		return nil, err
	}
	sim := matrix.CosineSimilarity(itemUser)
	return sim, nil
}
