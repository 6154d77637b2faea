package recall

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Source 表示一个可复用的候选来源（目录全集/热门/...）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
