// Package matrix 提供显式的稠密矩阵：行优先的 float64 缓冲区 + 按 ID 查找的命名索引，
// 以及相似度计算用到的少量矩阵运算。
package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID 表示索引中出现重复 ID
	ErrDuplicateID = errors.New("matrix: duplicate id in index")
	// ErrMisaligned 表示两个矩阵的索引集合不一致
	ErrMisaligned = errors.New("matrix: index sets differ")
	// ErrShape 表示维度不匹配
	ErrShape = errors.New("matrix: shape mismatch")
)

// Index 是有序、无重复的 int64 标签索引。
type Index struct {
	ids []int64
	pos map[int64]int
}

// NewIndex 按给定顺序构建索引；重复 ID 返回 ErrDuplicateID。
func NewIndex(ids []int64) (*Index, error) {
	ix := &Index{
		ids: make([]int64, len(ids)),
		pos: make(map[int64]int, len(ids)),
	}
	copy(ix.ids, ids)
	for i, id := range ids {
		if _, dup := ix.pos[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		ix.pos[id] = i
	}
	return ix, nil
}

// Len 返回索引长度。
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// IDs 返回索引顺序的 ID，调用方不得修改。
func (ix *Index) IDs() []int64 { return ix.ids }

// Pos 返回 ID 的位置。
func (ix *Index) Pos(id int64) (int, bool) {
	p, ok := ix.pos[id]
	return p, ok
}

// Equal 判断两个索引顺序与内容都相同。
func (ix *Index) Equal(other *Index) bool {
	if ix.Len() != other.Len() {
		return false
	}
	for i, id := range ix.ids {
		if other.ids[i] != id {
			return false
		}
	}
	return true
}

// SameSet 判断两个索引包含相同的 ID 集合（忽略顺序）。
func (ix *Index) SameSet(other *Index) bool {
	if ix.Len() != other.Len() {
		return false
	}
	for _, id := range ix.ids {
		if _, ok := other.pos[id]; !ok {
			return false
		}
	}
	return true
}
