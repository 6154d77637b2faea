package feature

import (
	"sort"
	"strings"

	"github.com/rushteam/hybridrec/pkg/matrix"
)

// MultiHotEncoder 多标签编码（Multi-Hot Encoding）
// 将 "Action, Drama" 这类多值类别切分后编码为词表上的 0/1 向量。
// 词表是全目录出现过的标签并集，按字典序排列，保证同一轮内稳定。
type MultiHotEncoder struct {
	// Delimiter 切分符，默认 ","
	Delimiter string

	vocab []string
	pos   map[string]int
}

// NewMultiHotEncoder 创建多标签编码器
func NewMultiHotEncoder(delimiter string) *MultiHotEncoder {
	if delimiter == "" {
		delimiter = ","
	}
	return &MultiHotEncoder{Delimiter: delimiter}
}

// Tokens 切分并去除首尾空白，丢弃空标签。
func (e *MultiHotEncoder) Tokens(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, e.Delimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Fit 从全部取值构建词表
func (e *MultiHotEncoder) Fit(values []string) *MultiHotEncoder {
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, tok := range e.Tokens(v) {
			seen[tok] = struct{}{}
		}
	}
	e.vocab = make([]string, 0, len(seen))
	for tok := range seen {
		e.vocab = append(e.vocab, tok)
	}
	sort.Strings(e.vocab)
	e.pos = make(map[string]int, len(e.vocab))
	for i, tok := range e.vocab {
		e.pos[tok] = i
	}
	return e
}

// Vocabulary 返回词表（只读）
func (e *MultiHotEncoder) Vocabulary() []string { return e.vocab }

// Encode 把单个取值编码为词表宽度的向量，不在词表中的标签被忽略
func (e *MultiHotEncoder) Encode(value string) []float64 {
	out := make([]float64, len(e.vocab))
	for _, tok := range e.Tokens(value) {
		if i, ok := e.pos[tok]; ok {
			out[i] = 1
		}
	}
	return out
}

// Transform 把按行排列的取值编码为矩阵，行索引由调用方给定
func (e *MultiHotEncoder) Transform(rowIndex *matrix.Index, values []string) *matrix.Dense {
	m := matrix.NewPositional(rowIndex, len(e.vocab))
	for i, v := range values {
		copy(m.Row(i), e.Encode(v))
	}
	return m
}
