// Package engine 把批处理的各个阶段串起来：
//
//	快照读取 → 特征构建 → 内容相似度 / 协同相似度 → hybrid 合并 → 逐用户 Pipeline → 编号 → 两阶段写入
//
// 每次 Run 都从头计算，不保留跨运行的状态。
package engine

import (
	"context"
	"time"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/feature"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/pkg/matrix"
	"github.com/rushteam/hybridrec/pkg/metrics"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
	"github.com/rushteam/hybridrec/store"
)

// Engine 是一次批处理运行所需的全部协作者。
type Engine struct {
	Source core.DataSource
	// Sinks 先全部暂存再统一提交，任一失败则全部保持旧结果
	Sinks []core.RecommendationSink
	// Pipeline 是逐用户的候选 → 过滤 → 打分 → 截断 → 解释链路
	Pipeline *pipeline.Pipeline

	Features      *feature.Builder
	Content       *recall.ContentModel
	Collaborative *recall.ItemBasedCF
	Hybrid        *recall.Hybridizer

	// Reason 是 Pipeline 没有写 reason label 时使用的解释文本
	Reason  string
	Metrics *metrics.Metrics
}

// New 使用默认的特征、相似度与 hybrid 设置创建 Engine。
func New(source core.DataSource, p *pipeline.Pipeline, sinks ...core.RecommendationSink) *Engine {
	return &Engine{
		Source:        source,
		Sinks:         sinks,
		Pipeline:      p,
		Features:      feature.NewBuilder(),
		Content:       &recall.ContentModel{},
		Collaborative: &recall.ItemBasedCF{},
		Hybrid:        &recall.Hybridizer{},
		Reason:        rerank.DefaultReason,
	}
}

// Output 是一次计算的全部中间结果与最终推荐。
type Output struct {
	Catalog    []core.ContentItem
	Ratings    *core.RatingSet
	Vocabulary []string

	Content       *matrix.Dense
	Collaborative *matrix.Dense
	Hybrid        *matrix.Dense
	Alpha         float64

	// Recommendations 按用户首次出现顺序分组，组内按分数降序，ID 为 1..N
	Recommendations []core.Recommendation
}

// Result 是一次 Run 的摘要。
type Result struct {
	Items           int
	Ratings         int
	Users           int
	Alpha           float64
	Recommendations int
	Written         bool
	Duration        time.Duration
}

// Run 执行一次完整的批处理。
//
// 目录为空时返回 core.ErrNoContent 且不写任何 sink；没有任何推荐时跳过写入，旧结果保持可见。
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := logging.Component("engine")
	ctx = logging.WithContext(ctx, *log)

	res, err := e.run(ctx)
	if res == nil {
		res = &Result{}
	}
	res.Duration = time.Since(start)

	switch {
	case core.IsNoData(err):
		log.Warn().Err(err).Msg("nothing to compute, sinks left untouched")
		e.Metrics.ObserveRun(metrics.OutcomeNoData, start, 0)
	case err != nil:
		log.Error().Err(err).Dur("duration", res.Duration).Msg("run failed")
		e.Metrics.ObserveRun(metrics.OutcomeError, start, 0)
	case !res.Written:
		e.Metrics.ObserveRun(metrics.OutcomeEmpty, start, 0)
	default:
		log.Info().
			Int("items", res.Items).
			Int("users", res.Users).
			Int("recommendations", res.Recommendations).
			Float64("alpha", res.Alpha).
			Dur("duration", res.Duration).
			Msg("run finished")
		e.Metrics.ObserveRun(metrics.OutcomeSuccess, start, res.Recommendations)
	}
	return res, err
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	log := logging.Ctx(ctx)
	if e.Source == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: data source is not configured")
	}

	stage := time.Now()
	catalog, ratings, err := e.Source.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	e.Metrics.ObserveStage("load", stage)
	log.Info().Str("source", e.Source.Name()).Int("items", len(catalog)).Int("ratings", len(ratings)).Msg("snapshot loaded")

	out, err := e.Compute(ctx, catalog, ratings)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Items:           len(out.Catalog),
		Ratings:         out.Ratings.Len(),
		Users:           len(out.Ratings.Users()),
		Alpha:           out.Alpha,
		Recommendations: len(out.Recommendations),
	}
	e.Metrics.SetAlpha(out.Alpha)
	e.Metrics.AddUsers(res.Users)

	if len(out.Recommendations) == 0 {
		log.Warn().Int("users", res.Users).Msg("no recommendations produced, previous set kept")
		return res, nil
	}

	stage = time.Now()
	if err := store.Publish(ctx, out.Recommendations, out.Catalog, e.Sinks...); err != nil {
		return res, err
	}
	e.Metrics.ObserveStage("persist", stage)
	res.Written = true
	return res, nil
}

// Compute 在内存中完成除读写之外的全部计算，不产生副作用。
func (e *Engine) Compute(ctx context.Context, catalog []core.ContentItem, ratings []core.Rating) (*Output, error) {
	if len(catalog) == 0 {
		return nil, core.ErrNoContent
	}
	if e.Pipeline == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: pipeline is not configured")
	}
	log := logging.Ctx(ctx)
	rs := core.NewRatingSet(ratings)

	stage := time.Now()
	vecs, err := e.Features.Build(catalog)
	if err != nil {
		return nil, err
	}
	e.Metrics.ObserveStage("features", stage)
	log.Debug().Int("vocabulary", len(vecs.Vocabulary)).Int("width", vecs.Width()).Msg("features built")

	stage = time.Now()
	content, err := e.Content.Similarity(vecs)
	if err != nil {
		return nil, err
	}
	collaborative, err := e.Collaborative.Similarity(content.RowIndex(), rs)
	if err != nil {
		return nil, err
	}
	alpha := e.Hybrid.Alpha(rs.Len())
	hybrid, err := e.Hybrid.Combine(content, collaborative, alpha)
	if err != nil {
		return nil, err
	}
	e.Metrics.ObserveStage("similarity", stage)
	log.Debug().Float64("alpha", alpha).Int("users", len(rs.Users())).Msg("similarity computed")

	stage = time.Now()
	recs, err := e.recommend(ctx, catalog, rs, hybrid)
	if err != nil {
		return nil, err
	}
	e.Metrics.ObserveStage("score", stage)

	return &Output{
		Catalog:         catalog,
		Ratings:         rs,
		Vocabulary:      vecs.Vocabulary,
		Content:         content,
		Collaborative:   collaborative,
		Hybrid:          hybrid,
		Alpha:           alpha,
		Recommendations: recs,
	}, nil
}

// recommend 对每个出现在评分中的用户运行 Pipeline，并按输出顺序编号 1..N。
func (e *Engine) recommend(ctx context.Context, catalog []core.ContentItem, rs *core.RatingSet, sim core.SimilarityLookup) ([]core.Recommendation, error) {
	ids := make([]int64, len(catalog))
	content := make(map[int64]*core.ContentItem, len(catalog))
	for i := range catalog {
		ids[i] = catalog[i].ID
		content[catalog[i].ID] = &catalog[i]
	}

	var recs []core.Recommendation
	for _, userID := range rs.Users() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rctx := &core.RecommendContext{
			UserID:     userID,
			Ratings:    rs.ForUser(userID),
			Catalog:    ids,
			Similarity: sim,
			Content:    content,
		}
		items, err := e.Pipeline.Run(ctx, rctx, nil)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "engine: pipeline failed for user", err)
		}
		for _, it := range items {
			if it == nil {
				continue
			}
			reason := e.Reason
			if lbl, ok := it.Labels[rerank.ReasonLabel]; ok && lbl.Value != "" {
				reason = lbl.Value
			}
			recs = append(recs, core.Recommendation{
				ID:     int64(len(recs) + 1),
				UserID: userID,
				ItemID: it.ID,
				Score:  it.Score,
				Reason: reason,
			})
		}
	}
	return recs, nil
}
