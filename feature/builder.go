package feature

import (
	"errors"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/matrix"
)

// 情绪画像与观感画像的固定轴顺序。
var (
	EmotionAxes = []string{
		"joy", "sadness", "anger", "fear", "surprise", "disgust",
		"anticipation", "trust", "awe", "tension", "excitement",
	}
	PerceptionAxes = []string{
		"plot", "acting", "visuals", "soundtrack", "originality", "pacing", "atmosphere",
	}
)

// Vectors 是 Builder 的输出：每个内容一行，[genre multi-hot | 情绪 | 观感]。
type Vectors struct {
	Matrix     *matrix.Dense
	Vocabulary []string
}

// Width 返回特征向量宽度
func (v *Vectors) Width() int { return v.Matrix.Cols() }

// Builder 把目录中的异构属性转换为定宽数值向量。
type Builder struct {
	// GenreDelimiter 类型串切分符，默认 ","
	GenreDelimiter string

	// EmotionAxes / PerceptionAxes 为空时使用包级默认轴
	EmotionAxes    []string
	PerceptionAxes []string
}

// NewBuilder 创建使用默认轴的 Builder
func NewBuilder() *Builder {
	return &Builder{GenreDelimiter: ","}
}

// Build 构建特征矩阵，行顺序即目录顺序。
//
// 目录为空返回 core.ErrNoContent；内容 ID 重复返回 INVALID_INPUT。
func (b *Builder) Build(catalog []core.ContentItem) (*Vectors, error) {
	if len(catalog) == 0 {
		return nil, core.ErrNoContent
	}

	ids := make([]int64, len(catalog))
	genres := make([]string, len(catalog))
	for i, it := range catalog {
		ids[i] = it.ID
		genres[i] = it.Genre
	}
	rowIndex, err := matrix.NewIndex(ids)
	if err != nil {
		if errors.Is(err, matrix.ErrDuplicateID) {
			return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput, "feature: catalog ids are not unique", err)
		}
		return nil, err
	}

	enc := NewMultiHotEncoder(b.GenreDelimiter).Fit(genres)
	genreMatrix := enc.Transform(rowIndex, genres)

	emotionAxes := b.EmotionAxes
	if len(emotionAxes) == 0 {
		emotionAxes = EmotionAxes
	}
	perceptionAxes := b.PerceptionAxes
	if len(perceptionAxes) == 0 {
		perceptionAxes = PerceptionAxes
	}

	emotion := axesMatrix(rowIndex, catalog, emotionAxes, func(it core.ContentItem) core.Profile { return it.Emotions })
	perception := axesMatrix(rowIndex, catalog, perceptionAxes, func(it core.ContentItem) core.Profile { return it.Perception })

	(&MinMaxScaler{}).FitTransform(emotion)
	(&MinMaxScaler{}).FitTransform(perception)

	features, err := matrix.HStack(genreMatrix, emotion, perception)
	if err != nil {
		return nil, err
	}
	return &Vectors{Matrix: features, Vocabulary: enc.Vocabulary()}, nil
}

// ExtractAxes 按固定轴顺序取画像值，缺失为 0
func ExtractAxes(p core.Profile, axes []string) []float64 {
	out := make([]float64, len(axes))
	for i, axis := range axes {
		out[i] = p.Axis(axis)
	}
	return out
}

func axesMatrix(rowIndex *matrix.Index, catalog []core.ContentItem, axes []string, profile func(core.ContentItem) core.Profile) *matrix.Dense {
	m := matrix.NewPositional(rowIndex, len(axes))
	for i, it := range catalog {
		copy(m.Row(i), ExtractAxes(profile(it), axes))
	}
	return m
}
