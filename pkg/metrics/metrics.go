// Package metrics 定义批处理运行与 HTTP 服务的 Prometheus 指标。
// 所有方法对 nil *Metrics 安全，未配置指标时可以直接传 nil。
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "hybridrec"

// 运行结果
const (
	OutcomeSuccess = "success"
	OutcomeNoData  = "no_data"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	RunDuration     *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
	Recommendations prometheus.Counter
	UsersScored     prometheus.Counter
	Alpha           prometheus.Gauge
	LastSuccess     prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New 在独立的 registry 上注册全部指标。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full recommendation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each run stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Recommendation runs by outcome.",
		}, []string{"outcome"}),
		Recommendations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_written_total",
			Help:      "Recommendation rows written to sinks.",
		}),
		UsersScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_scored_total",
			Help:      "Users processed by the scoring pipeline.",
		}),
		Alpha: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hybrid_alpha",
			Help:      "Collaborative weight used by the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}
	m.registry.MustRegister(
		m.RunDuration,
		m.StageDuration,
		m.Runs,
		m.Recommendations,
		m.UsersScored,
		m.Alpha,
		m.LastSuccess,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry 返回底层 registry，nil 时返回 nil。
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage 记录某个阶段的耗时。
func (m *Metrics) ObserveStage(stage string, since time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(since).Seconds())
}

// ObserveRun 记录一次运行的结果。
func (m *Metrics) ObserveRun(outcome string, since time.Time, written int) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(outcome).Observe(time.Since(since).Seconds())
	m.Runs.WithLabelValues(outcome).Inc()
	if written > 0 {
		m.Recommendations.Add(float64(written))
	}
	if outcome != OutcomeError {
		m.LastSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) SetAlpha(alpha float64) {
	if m == nil {
		return
	}
	m.Alpha.Set(alpha)
}

func (m *Metrics) AddUsers(n int) {
	if m == nil {
		return
	}
	m.UsersScored.Add(float64(n))
}

// Handler 返回 /metrics 的 HTTP handler。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push 把当前指标推送到 Pushgateway，url 为空时不做任何事。
// 批处理任务在退出前调用。
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}

// Middleware 记录 HTTP 请求数与耗时，path 使用 chi 路由模板避免高基数。
func (m *Metrics) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			path := "unknown"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				path = rc.RoutePattern()
			}
			status := strconv.Itoa(ww.status)
			m.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}
