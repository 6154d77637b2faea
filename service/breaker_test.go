package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/hybridrec/core"
)

type countingReader struct {
	calls int
	err   error
}

func (r *countingReader) ForUser(context.Context, int64, int) ([]core.Recommendation, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []core.Recommendation{{UserID: 1, ItemID: 2, Score: 3}}, nil
}

func TestBreakerReaderOpensAfterFailures(t *testing.T) {
	next := &countingReader{err: errors.New("connection refused")}
	r := NewBreakerReader(next, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := r.ForUser(context.Background(), 1, 5); err == nil || core.IsUnavailable(err) {
			t.Fatalf("call %d error = %v, want backend error", i, err)
		}
	}
	if r.State() != "open" {
		t.Fatalf("State() = %q, want open", r.State())
	}

	_, err := r.ForUser(context.Background(), 1, 5)
	if !core.IsUnavailable(err) {
		t.Errorf("open breaker error = %v, want UNAVAILABLE", err)
	}
	if next.calls != 2 {
		t.Errorf("backend calls = %d, want 2", next.calls)
	}
}

func TestBreakerReaderPassesThrough(t *testing.T) {
	r := NewBreakerReader(&countingReader{}, BreakerConfig{})
	recs, err := r.ForUser(context.Background(), 1, 5)
	if err != nil || len(recs) != 1 || recs[0].ItemID != 2 {
		t.Errorf("ForUser() = %v, %v", recs, err)
	}
	if r.State() != "closed" {
		t.Errorf("State() = %q, want closed", r.State())
	}
}

func TestForUserFallsBackWhenReaderUnavailable(t *testing.T) {
	down := core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "down")
	svc := NewRecommendService(failingReader{err: down}, &stubSource{ids: []int64{5, 6}}, nil, 10)

	out, err := svc.ForUser(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourcePopular || len(out.Items) != 1 || out.Items[0].ItemID != 5 {
		t.Errorf("ForUser() = %+v", out)
	}
}

type stubSource struct{ ids []int64 }

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Recall(context.Context, *core.RecommendContext) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, core.NewItem(id))
	}
	return out, nil
}
