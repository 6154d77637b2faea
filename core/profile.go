package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/pkg/conv"
)

// Profile 是解析后的数值画像：轴名 → 数值。只保留可转为数值的轴。
type Profile map[string]float64

// Axis 返回轴的值；缺失时为 0。
func (p Profile) Axis(name string) float64 {
	if p == nil {
		return 0
	}
	return p[name]
}

type profileKind uint8

const (
	profileMissing profileKind = iota
	profileText
	profileMapping
)

// ProfileInput 是画像的原始输入：要么是未解码的 JSON 文本，要么是已解码的映射。
// 在入库读取时通过 Resolve 一次性转为 Profile。
type ProfileInput struct {
	kind    profileKind
	text    string
	mapping map[string]any
}

// ProfileText 以 JSON 文本构造输入。
func ProfileText(text string) ProfileInput {
	return ProfileInput{kind: profileText, text: text}
}

// ProfileMapping 以已解码的映射构造输入。
func ProfileMapping(m map[string]any) ProfileInput {
	return ProfileInput{kind: profileMapping, mapping: m}
}

// Resolve 解析画像。解析失败、非对象 JSON、缺失输入都得到空画像，不返回错误。
func (in ProfileInput) Resolve() Profile {
	var raw map[string]any
	switch in.kind {
	case profileText:
		text := strings.TrimSpace(in.text)
		if text == "" {
			return Profile{}
		}
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return Profile{}
		}
	case profileMapping:
		raw = in.mapping
	default:
		return Profile{}
	}

	out := make(Profile, len(raw))
	for k, v := range raw {
		if f, ok := profileNumber(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			out[k] = f
		}
	}
	return out
}

// ResolveProfile 是 ProfileInput.Resolve 的便捷形式。
func ResolveProfile(in ProfileInput) Profile { return in.Resolve() }

func profileNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return conv.ToFloat64(v)
	}
}
