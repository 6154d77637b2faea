package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/hybridrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境，定义 item / label / rctx 三个变量
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的 Label DSL 表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可在多个 goroutine 中并发 Evaluate。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "catalog"
//   - 数值：item.score > 0.7 / item.id != 42
//   - 逻辑：label.recall_source == "catalog" && item.score > 0.1
//   - 存在性："recall_source" in label
//   - 上下文：rctx.rating_count >= 3 / rctx.params.min_score
//
// 示例：
//   - `item.id in [1, 2, 3]` → 内容 ID 在列表中
//   - `size(rctx.ratings) == 0` → 用户没有评分
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式返回 nil，Evaluate 时恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Evaluate 对单个 item 执行表达式，返回布尔结果。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 编译并执行一次表达式，适合只用一次的场景。
func Eval(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Evaluate(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{})
	item := map[string]interface{}{}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = v.Value
		}
		meta := it.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		item = map[string]interface{}{
			"id":    it.ID,
			"score": it.Score,
			"meta":  meta,
		}
	}

	ctx := map[string]interface{}{}
	if rctx != nil {
		ratings := make(map[int64]float64, len(rctx.Ratings))
		for _, r := range rctx.Ratings {
			ratings[r.ItemID] = r.Score
		}
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		ctx = map[string]interface{}{
			"user_id":      rctx.UserID,
			"ratings":      ratings,
			"rating_count": int64(len(rctx.Ratings)),
			"params":       params,
		}
	}

	return map[string]interface{}{
		"item":  item,
		"label": labels,
		"rctx":  ctx,
	}
}
