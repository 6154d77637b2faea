package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤，表达式为 true 时过滤掉该内容。
//
// 示例：
//
//	item.id in [13, 21]
//	"recall_source" in label && label.recall_source != "catalog"
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式；编译失败返回 INVALID_INPUT。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "filter: invalid expression", err)
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.prg == nil {
		return false, nil
	}
	return f.prg.Evaluate(item, rctx)
}
