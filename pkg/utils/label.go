// Package utils 放 Pipeline 共用的小类型。
package utils

// Label 挂在候选或用户上的标注，例如召回来源、排序模型、推荐理由。
// Source 记录写入它的阶段（recall / filter / rank / rerank / postprocess）。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergeLabel 合并同名 Label：Value 用 '|' 拼接，Source 用 ',' 拼接，空值不参与拼接。
// 需要覆盖语义时改用 Item.SetLabel。
func MergeLabel(existing, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  existing.Value + "|" + incoming.Value,
		Source: join(existing.Source, incoming.Source, ","),
	}
}

func join(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + sep + b
}
