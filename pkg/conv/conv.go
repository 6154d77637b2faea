// Package conv 读取 YAML/JSON 解码后的松散类型值（map[string]any、[]any、数字）。
package conv

// ToFloat64 把数字类型统一为 float64；bool 记为 1/0，其它类型 ok=false。
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ConvertSlice 逐个转换 s 的元素，convert 返回 false 的元素被丢弃。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// ConfigGet 取 m[key] 并断言为 T；缺失或类型不符时返回 def。
func ConfigGet[T any](m map[string]any, key string, def T) T {
	if v, ok := m[key].(T); ok {
		return v
	}
	return def
}

// ConfigGetFloat64 取数值配置，YAML 里的 1 与 1.0 都能读到。
func ConfigGetFloat64(m map[string]any, key string, def float64) float64 {
	if f, ok := ToFloat64(m[key]); ok {
		if _, isBool := m[key].(bool); !isBool {
			return f
		}
	}
	return def
}

// ConfigGetInt64 取整数配置，小数部分被截断。
func ConfigGetInt64(m map[string]any, key string, def int64) int64 {
	if i, ok := m[key].(int64); ok {
		return i
	}
	return int64(ConfigGetFloat64(m, key, float64(def)))
}
