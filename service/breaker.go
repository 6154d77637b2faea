package service

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/logging"
)

// BreakerConfig 是读取面熔断器的配置。
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

// BreakerReader 用熔断器包装 core.RecommendationReader。
// 连续失败达到阈值后打开，打开期间直接返回 UNAVAILABLE，不再访问后端。
type BreakerReader struct {
	next core.RecommendationReader
	cb   *gobreaker.CircuitBreaker[[]core.Recommendation]
}

func NewBreakerReader(next core.RecommendationReader, cfg BreakerConfig) *BreakerReader {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Name == "" {
		cfg.Name = "recommendation_reader"
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Component("service").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &BreakerReader{next: next, cb: gobreaker.NewCircuitBreaker[[]core.Recommendation](st)}
}

// ForUser 实现 core.RecommendationReader。
func (r *BreakerReader) ForUser(ctx context.Context, userID int64, limit int) ([]core.Recommendation, error) {
	recs, err := r.cb.Execute(func() ([]core.Recommendation, error) {
		return r.next.ForUser(ctx, userID, limit)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapDomainError(core.ModuleService, core.ErrorCodeUnavailable, "service: recommendation store unavailable", err)
	}
	return recs, err
}

// State 返回熔断器当前状态（closed / half-open / open）。
func (r *BreakerReader) State() string {
	return r.cb.State().String()
}
