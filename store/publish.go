package store

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/logging"
)

// Publish 把同一份结果原子地发布到全部 sink：
//  1. 按顺序 Stage 每个 sink，任一失败则回滚已暂存的部分
//  2. 全部暂存成功后按顺序 Commit，任一失败则逆序回滚全部（已 Commit 的恢复旧结果）
//  3. 全部 Commit 成功后 Finish，清理失败只记录日志
//
// 返回 nil 表示每个 sink 都切换到了新结果；返回错误时每个 sink 都保持旧结果，
// 除非回滚本身也失败（会记录 error 日志）。
func Publish(ctx context.Context, recs []core.Recommendation, catalog []core.ContentItem, sinks ...core.RecommendationSink) error {
	log := logging.Ctx(ctx)
	staged := make([]core.StagedWrite, 0, len(sinks))

	rollback := func() {
		for i := len(staged) - 1; i >= 0; i-- {
			if err := staged[i].Rollback(ctx); err != nil {
				log.Error().Err(err).Str("sink", sinks[i].Name()).Msg("rollback failed, sink may serve the new set")
			}
		}
	}

	for _, sink := range sinks {
		w, err := sink.Stage(ctx, recs, catalog)
		if err != nil {
			rollback()
			return fmt.Errorf("stage %s: %w", sink.Name(), err)
		}
		staged = append(staged, w)
	}

	for i, w := range staged {
		if err := w.Commit(ctx); err != nil {
			rollback()
			return fmt.Errorf("commit %s: %w", sinks[i].Name(), err)
		}
	}

	for i, w := range staged {
		if err := w.Finish(ctx); err != nil {
			log.Warn().Err(err).Str("sink", sinks[i].Name()).Msg("failed to clean up previous set")
		}
	}
	return nil
}

func replace(ctx context.Context, sink core.RecommendationSink, recs []core.Recommendation, catalog []core.ContentItem) error {
	return Publish(ctx, recs, catalog, sink)
}
