package feature

import (
	"math"

	"github.com/rushteam/hybridrec/pkg/matrix"
)

// MinMaxScaler Min-Max 归一化（按列）
// 公式: x' = (x - min) / (max - min)
// 特点: 每一列独立缩放到 [0, 1] 区间
//
// 某列在全目录上是常数（max == min）时，该列所有值归一化为 0。
type MinMaxScaler struct {
	Min []float64 // 每列最小值
	Max []float64 // 每列最大值
}

// Fit 统计每列的最小/最大值
func (s *MinMaxScaler) Fit(m *matrix.Dense) *MinMaxScaler {
	s.Min = make([]float64, m.Cols())
	s.Max = make([]float64, m.Cols())
	for j := 0; j < m.Cols(); j++ {
		s.Min[j] = math.Inf(1)
		s.Max[j] = math.Inf(-1)
	}
	for i := 0; i < m.Rows(); i++ {
		for j, v := range m.Row(i) {
			s.Min[j] = math.Min(s.Min[j], v)
			s.Max[j] = math.Max(s.Max[j], v)
		}
	}
	return s
}

// ScaleValue 归一化第 j 列的单个值
func (s *MinMaxScaler) ScaleValue(j int, value float64) float64 {
	rangeVal := s.Max[j] - s.Min[j]
	if rangeVal > 0 {
		return (value - s.Min[j]) / rangeVal
	}
	return 0
}

// Transform 原地归一化矩阵
func (s *MinMaxScaler) Transform(m *matrix.Dense) *matrix.Dense {
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j, v := range row {
			row[j] = s.ScaleValue(j, v)
		}
	}
	return m
}

// FitTransform 等价于 Fit 后 Transform
func (s *MinMaxScaler) FitTransform(m *matrix.Dense) *matrix.Dense {
	return s.Fit(m).Transform(m)
}
