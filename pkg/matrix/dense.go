package matrix

import (
	"fmt"
	"math"
)

// Dense 是行优先存储的稠密矩阵。
// rowIndex 必须存在；colIndex 可以为空（例如特征矩阵的列只有位置没有 ID）。
type Dense struct {
	rows, cols int
	data       []float64

	rowIndex *Index
	colIndex *Index
}

// NewDense 创建全零矩阵，行列都带 ID 索引。
func NewDense(rowIndex, colIndex *Index) *Dense {
	return &Dense{
		rows:     rowIndex.Len(),
		cols:     colIndex.Len(),
		data:     make([]float64, rowIndex.Len()*colIndex.Len()),
		rowIndex: rowIndex,
		colIndex: colIndex,
	}
}

// NewPositional 创建只有行索引、列按位置访问的全零矩阵。
func NewPositional(rowIndex *Index, cols int) *Dense {
	return &Dense{
		rows:     rowIndex.Len(),
		cols:     cols,
		data:     make([]float64, rowIndex.Len()*cols),
		rowIndex: rowIndex,
	}
}

func (m *Dense) Rows() int { return m.rows }
func (m *Dense) Cols() int { return m.cols }

func (m *Dense) RowIndex() *Index { return m.rowIndex }
func (m *Dense) ColIndex() *Index { return m.colIndex }

func (m *Dense) At(i, j int) float64 { return m.data[i*m.cols+j] }

func (m *Dense) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Row 返回第 i 行的切片视图，修改会写回矩阵。
func (m *Dense) Row(i int) []float64 { return m.data[i*m.cols : (i+1)*m.cols] }

// Lookup 按行列 ID 取值，实现 core.SimilarityLookup。
func (m *Dense) Lookup(rowID, colID int64) (float64, bool) {
	if m.colIndex == nil {
		return 0, false
	}
	i, ok := m.rowIndex.Pos(rowID)
	if !ok {
		return 0, false
	}
	j, ok := m.colIndex.Pos(colID)
	if !ok {
		return 0, false
	}
	return m.At(i, j), true
}

// Transpose 返回转置矩阵，行列索引互换。列索引为空时不能转置。
func (m *Dense) Transpose() (*Dense, error) {
	if m.colIndex == nil {
		return nil, fmt.Errorf("%w: transpose needs a column index", ErrShape)
	}
	t := NewDense(m.colIndex, m.rowIndex)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t, nil
}

// Reindex 按新的行列索引重排矩阵。新索引必须与原索引包含完全相同的 ID 集合，
// 否则返回 ErrMisaligned，不做任何填充。
func (m *Dense) Reindex(rowIndex, colIndex *Index) (*Dense, error) {
	if m.colIndex == nil {
		return nil, fmt.Errorf("%w: reindex needs a column index", ErrShape)
	}
	if !m.rowIndex.SameSet(rowIndex) || !m.colIndex.SameSet(colIndex) {
		return nil, ErrMisaligned
	}
	if m.rowIndex.Equal(rowIndex) && m.colIndex.Equal(colIndex) {
		return m, nil
	}
	out := NewDense(rowIndex, colIndex)
	for i, rid := range rowIndex.IDs() {
		si, _ := m.rowIndex.Pos(rid)
		for j, cid := range colIndex.IDs() {
			sj, _ := m.colIndex.Pos(cid)
			out.Set(i, j, m.At(si, sj))
		}
	}
	return out, nil
}

// HStack 横向拼接若干位置矩阵，要求行索引相同。
func HStack(parts ...*Dense) (*Dense, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	rowIndex := parts[0].rowIndex
	cols := 0
	for _, p := range parts {
		if !p.rowIndex.Equal(rowIndex) {
			return nil, ErrMisaligned
		}
		cols += p.cols
	}
	out := NewPositional(rowIndex, cols)
	for i := 0; i < out.rows; i++ {
		dst := out.Row(i)
		off := 0
		for _, p := range parts {
			copy(dst[off:], p.Row(i))
			off += p.cols
		}
	}
	return out, nil
}

// CosineSimilarity 计算各行两两之间的余弦相似度，结果行列都使用 m 的行索引。
//
// 零向量与任何行（包括自身）的相似度为 0；非零行的对角线固定为 1。
// 结果严格对称，数值截断到 [-1, 1]。
func CosineSimilarity(m *Dense) *Dense {
	out := NewDense(m.rowIndex, m.rowIndex)
	norms := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		norms[i] = math.Sqrt(Dot(m.Row(i), m.Row(i)))
	}
	for i := 0; i < m.rows; i++ {
		if norms[i] == 0 {
			continue
		}
		out.Set(i, i, 1)
		ri := m.Row(i)
		for j := i + 1; j < m.rows; j++ {
			if norms[j] == 0 {
				continue
			}
			sim := Dot(ri, m.Row(j)) / (norms[i] * norms[j])
			sim = math.Max(-1, math.Min(1, sim))
			out.Set(i, j, sim)
			out.Set(j, i, sim)
		}
	}
	return out
}

// WeightedSum 返回 wa*a + wb*b。两者行列索引必须顺序一致，否则返回 ErrMisaligned。
func WeightedSum(a, b *Dense, wa, wb float64) (*Dense, error) {
	if a.colIndex == nil || b.colIndex == nil {
		return nil, fmt.Errorf("%w: weighted sum needs column indexes", ErrShape)
	}
	if !a.rowIndex.Equal(b.rowIndex) || !a.colIndex.Equal(b.colIndex) {
		return nil, ErrMisaligned
	}
	out := NewDense(a.rowIndex, a.colIndex)
	for k := range out.data {
		out.data[k] = wa*a.data[k] + wb*b.data[k]
	}
	return out, nil
}

// Dot 计算两个等长向量的内积。
func Dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
