package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/pkg/metrics"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/store"
)

type stubRunner struct {
	started chan struct{}
	release chan struct{}
	result  *engine.Result
	err     error
}

func (r *stubRunner) Run(ctx context.Context) (*engine.Result, error) {
	if r.started != nil {
		close(r.started)
		<-r.release
	}
	return r.result, r.err
}

type failingReader struct{ err error }

func (r failingReader) ForUser(context.Context, int64, int) ([]core.Recommendation, error) {
	return nil, r.err
}

func publish(t *testing.T, mem *store.MemoryStore) {
	t.Helper()
	sink := store.NewKVSink(mem, "rec")
	recs := []core.Recommendation{
		{ID: 1, UserID: 7, ItemID: 3, Score: 4.5, Reason: "Based on your preferences"},
		{ID: 2, UserID: 7, ItemID: 1, Score: 3.0, Reason: "Based on your preferences"},
		{ID: 3, UserID: 7, ItemID: 2, Score: 2.0, Reason: "Based on your preferences"},
	}
	catalog := []core.ContentItem{
		{ID: 1, Popularity: 10},
		{ID: 2, Popularity: 30},
		{ID: 3, Popularity: 20},
	}
	if err := sink.Replace(context.Background(), recs, catalog); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func newTestService(t *testing.T, runner Runner) (*RecommendService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	reader := store.NewKVReader(mem, "rec")
	hot := &recall.Hot{Store: mem, KeyFn: reader.HotKey, IDs: []int64{42}}
	return NewRecommendService(reader, hot, runner, 10), mem
}

func TestForUserPersonal(t *testing.T) {
	svc, mem := newTestService(t, nil)
	publish(t, mem)

	out, err := svc.ForUser(context.Background(), 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourcePersonal {
		t.Errorf("Source = %q, want %q", out.Source, SourcePersonal)
	}
	if len(out.Items) != 2 || out.Items[0].ItemID != 3 || out.Items[1].ItemID != 1 {
		t.Errorf("Items = %+v", out.Items)
	}
}

func TestForUserFallsBackToPopular(t *testing.T) {
	svc, mem := newTestService(t, nil)
	publish(t, mem)

	out, err := svc.ForUser(context.Background(), 99, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourcePopular {
		t.Fatalf("Source = %q, want %q", out.Source, SourcePopular)
	}
	want := []int64{2, 3, 1}
	if len(out.Items) != len(want) {
		t.Fatalf("Items = %+v", out.Items)
	}
	for i, id := range want {
		if out.Items[i].ItemID != id || out.Items[i].Reason != PopularReason || out.Items[i].UserID != 99 {
			t.Errorf("Items[%d] = %+v, want item %d", i, out.Items[i], id)
		}
	}
}

func TestForUserBeforeFirstRunUsesStaticFallback(t *testing.T) {
	svc, _ := newTestService(t, nil)

	out, err := svc.ForUser(context.Background(), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourcePopular || len(out.Items) != 1 || out.Items[0].ItemID != 42 {
		t.Errorf("ForUser() = %+v", out)
	}
}

func TestForUserReaderError(t *testing.T) {
	boom := core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "down")
	svc := NewRecommendService(failingReader{err: boom}, nil, nil, 0)
	if svc.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", svc.DefaultLimit)
	}
	if _, err := svc.ForUser(context.Background(), 1, 5); !errors.Is(err, boom) {
		t.Errorf("ForUser() error = %v, want %v", err, boom)
	}
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	runner := &stubRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  &engine.Result{Items: 3, Recommendations: 4, Written: true},
	}
	svc, _ := newTestService(t, runner)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = svc.Generate(context.Background())
	}()
	<-runner.started

	if _, err := svc.Generate(context.Background()); !errors.Is(err, core.ErrRunInProgress) {
		t.Errorf("second Generate() error = %v, want ErrRunInProgress", err)
	}
	close(runner.release)
	wg.Wait()
	if firstErr != nil {
		t.Errorf("first Generate() error = %v", firstErr)
	}
}

func TestGenerateWithoutRunner(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Generate(context.Background()); !core.IsNotSupported(err) {
		t.Errorf("Generate() error = %v, want NOT_SUPPORTED", err)
	}
}

func TestRouterRecommendations(t *testing.T) {
	svc, mem := newTestService(t, nil)
	publish(t, mem)
	srv := httptest.NewServer(NewRouter(svc, metrics.New(), testAuth))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/recommendations/7?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body UserRecommendations
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.UserID != 7 || body.Source != SourcePersonal || len(body.Items) != 1 || body.Items[0].ItemID != 3 {
		t.Errorf("body = %+v", body)
	}
}

func TestRouterBadRequests(t *testing.T) {
	svc, _ := newTestService(t, nil)
	h := NewRouter(svc, nil, testAuth)

	for _, path := range []string{
		"/recommendations/abc",
		"/recommendations/0",
		"/recommendations/7?limit=0",
		"/recommendations/7?limit=1000",
		"/recommendations/7?limit=x",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
			continue
		}
		var e ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Code != core.ErrorCodeInvalidInput {
			t.Errorf("GET %s body = %s", path, rec.Body.String())
		}
	}
}

func TestRouterGenerate(t *testing.T) {
	runner := &stubRunner{result: &engine.Result{Items: 3, Users: 2, Alpha: 0.7, Recommendations: 4, Written: true, Duration: 1500 * time.Millisecond}}
	svc, _ := newTestService(t, runner)
	h := NewRouter(svc, nil, testAuth)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, adminRequest(t, "/recommendations/generate"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Recommendations != 4 || !body.Written || body.DurationMS != 1500 || body.Alpha != 0.7 {
		t.Errorf("body = %+v", body)
	}
}

func TestRouterGenerateNoData(t *testing.T) {
	runner := &stubRunner{result: &engine.Result{}, err: core.ErrNoContent}
	svc, _ := newTestService(t, runner)

	rec := httptest.NewRecorder()
	NewRouter(svc, nil, testAuth).ServeHTTP(rec, adminRequest(t, "/recommendations/generate"))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouterGenerateFailure(t *testing.T) {
	runner := &stubRunner{err: core.ErrIndexMismatch}
	svc, _ := newTestService(t, runner)

	rec := httptest.NewRecorder()
	NewRouter(svc, nil, testAuth).ServeHTTP(rec, adminRequest(t, "/recommendations/generate"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), core.ErrorCodeMisaligned) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrRunInProgress, http.StatusConflict},
		{core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "x"), http.StatusServiceUnavailable},
		{core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "x"), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	svc, _ := newTestService(t, nil)
	h := NewRouter(svc, metrics.New(), testAuth)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hybridrec_http_requests_total") {
		t.Errorf("metrics = %d", rec.Code)
	}
}

type stubContent struct {
	items map[int64]core.ContentItem
	err   error
	calls int
}

func (c *stubContent) ContentByIDs(_ context.Context, ids []int64) (map[int64]core.ContentItem, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[int64]core.ContentItem, len(ids))
	for _, id := range ids {
		if it, ok := c.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func TestForUserAttachesContent(t *testing.T) {
	catalog := map[int64]core.ContentItem{
		3:  {ID: 3, Title: "Heat", Genre: "Action, Crime"},
		1:  {ID: 1, Title: "Amelie", Genre: "Comedy"},
		42: {ID: 42, Title: "Up", Genre: "Animation"},
	}
	tests := []struct {
		name      string
		user      int64
		lookup    *stubContent
		wantTitle []string
		wantGenre []string
	}{
		{
			name:      "personal",
			user:      7,
			lookup:    &stubContent{items: catalog},
			wantTitle: []string{"Heat", "Amelie"},
			wantGenre: []string{"Action, Crime", "Comedy"},
		},
		{
			name:      "popular fallback",
			user:      99,
			lookup:    &stubContent{items: catalog},
			wantTitle: []string{"", "Heat"},
			wantGenre: []string{"", "Action, Crime"},
		},
		{
			name:      "lookup failure keeps ids",
			user:      7,
			lookup:    &stubContent{err: core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "down")},
			wantTitle: []string{"", ""},
			wantGenre: []string{"", ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem := newTestService(t, nil)
			publish(t, mem)
			svc.WithContent(tt.lookup)

			out, err := svc.ForUser(context.Background(), tt.user, 2)
			if err != nil {
				t.Fatalf("ForUser() error = %v", err)
			}
			if len(out.Items) != len(tt.wantTitle) {
				t.Fatalf("Items = %+v", out.Items)
			}
			for i := range out.Items {
				if out.Items[i].Title != tt.wantTitle[i] || out.Items[i].Genre != tt.wantGenre[i] {
					t.Errorf("Items[%d] = %+v, want %q/%q", i, out.Items[i], tt.wantTitle[i], tt.wantGenre[i])
				}
			}
			if tt.lookup.calls != 1 {
				t.Errorf("lookup calls = %d, want 1", tt.lookup.calls)
			}
		})
	}
}

func TestRouterRecommendationsIncludeContent(t *testing.T) {
	svc, mem := newTestService(t, nil)
	publish(t, mem)
	svc.WithContent(&stubContent{items: map[int64]core.ContentItem{3: {ID: 3, Title: "Heat", Genre: "Action, Crime"}}})

	rec := httptest.NewRecorder()
	NewRouter(svc, nil, testAuth).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recommendations/7?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Items) != 1 {
		t.Fatalf("body = %s", rec.Body.String())
	}
	got := body.Items[0]
	if got["title"] != "Heat" || got["genre"] != "Action, Crime" || got["content_id"] != 3.0 || got["reason"] == nil {
		t.Errorf("item = %v", got)
	}
}
