// Package service 是推荐结果的对外服务层：读取用户推荐（带热门兜底）与触发批处理。
package service

import (
	"context"
	"sync"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/recall"
)

// 推荐来源
const (
	SourcePersonal = "personal"
	SourcePopular  = "popular"
)

// PopularReason 是热门兜底结果的解释文本。
const PopularReason = "Popular right now"

// Runner 执行一次批处理，由 *engine.Engine 实现。
type Runner interface {
	Run(ctx context.Context) (*engine.Result, error)
}

// ContentLookup 按 ID 读取内容的展示字段，由 *store.SQLSource 实现。
type ContentLookup interface {
	ContentByIDs(ctx context.Context, ids []int64) (map[int64]core.ContentItem, error)
}

// Item 是带展示字段的单条推荐。
type Item struct {
	core.Recommendation
	Title string `json:"title,omitempty"`
	Genre string `json:"genre,omitempty"`
}

// UserRecommendations 是单个用户的推荐响应。
type UserRecommendations struct {
	UserID int64  `json:"user_id"`
	Source string `json:"source"`
	Items  []Item `json:"items"`
}

// RecommendService 组合读取面、热门兜底与批处理触发。
type RecommendService struct {
	Reader   core.RecommendationReader
	Fallback recall.Source
	Runner   Runner
	// Content 为空时只返回内容 ID，不补标题与类型
	Content ContentLookup

	// DefaultLimit 未指定 limit 时返回的数量
	DefaultLimit int

	running sync.Mutex
}

func NewRecommendService(reader core.RecommendationReader, fallback recall.Source, runner Runner, defaultLimit int) *RecommendService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &RecommendService{
		Reader:       reader,
		Fallback:     fallback,
		Runner:       runner,
		DefaultLimit: defaultLimit,
	}
}

// WithContent 设置展示字段的来源。
func (s *RecommendService) WithContent(lookup ContentLookup) *RecommendService {
	s.Content = lookup
	return s
}

// ForUser 返回用户的推荐（按分数降序）；没有个性化结果或读取面不可用时使用热门兜底。
// limit <= 0 时使用 DefaultLimit。结果带内容标题与类型，读取失败时只记录日志。
func (s *RecommendService) ForUser(ctx context.Context, userID int64, limit int) (*UserRecommendations, error) {
	out, err := s.recommend(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	s.describe(ctx, out.Items)
	return out, nil
}

func (s *RecommendService) recommend(ctx context.Context, userID int64, limit int) (*UserRecommendations, error) {
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	out := &UserRecommendations{UserID: userID, Source: SourcePersonal, Items: []Item{}}

	if s.Reader != nil {
		recs, err := s.Reader.ForUser(ctx, userID, limit)
		switch {
		case err != nil && core.IsUnavailable(err) && s.Fallback != nil:
			logging.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("reader unavailable, serving popular items")
		case err != nil:
			return nil, err
		case len(recs) > 0:
			for _, r := range recs {
				out.Items = append(out.Items, Item{Recommendation: r})
			}
			return out, nil
		}
	}

	if s.Fallback == nil {
		return out, nil
	}
	items, err := s.Fallback.Recall(ctx, &core.RecommendContext{UserID: userID})
	if err != nil {
		return nil, err
	}
	out.Source = SourcePopular
	for _, it := range items {
		if len(out.Items) >= limit {
			break
		}
		out.Items = append(out.Items, Item{Recommendation: core.Recommendation{
			UserID: userID,
			ItemID: it.ID,
			Score:  it.Score,
			Reason: PopularReason,
		}})
	}
	return out, nil
}

func (s *RecommendService) describe(ctx context.Context, items []Item) {
	if s.Content == nil || len(items) == 0 {
		return
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	content, err := s.Content.ContentByIDs(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("items", len(ids)).Msg("content lookup failed, returning ids only")
		return
	}
	for i := range items {
		if c, ok := content[items[i].ItemID]; ok {
			items[i].Title = c.Title
			items[i].Genre = c.Genre
		}
	}
}

// Generate 同步执行一次批处理；已有运行时返回 core.ErrRunInProgress。
func (s *RecommendService) Generate(ctx context.Context) (*engine.Result, error) {
	if s.Runner == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported, "service: batch runs are not enabled")
	}
	if !s.running.TryLock() {
		return nil, core.ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.Runner.Run(ctx)
}
