package service

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/pkg/metrics"
)

// MaxLimit 是单次请求允许的最大 limit。
const MaxLimit = 100

// ErrorResponse 是错误响应体。
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GenerateResponse 是触发批处理的响应体。
type GenerateResponse struct {
	Items           int     `json:"items"`
	Ratings         int     `json:"ratings"`
	Users           int     `json:"users"`
	Alpha           float64 `json:"alpha"`
	Recommendations int     `json:"recommendations"`
	Written         bool    `json:"written"`
	DurationMS      int64   `json:"duration_ms"`
}

// NewRouter 注册 HTTP 路由：
//
//	GET  /healthz
//	GET  /metrics
//	GET  /recommendations/{userID}?limit=N
//	POST /recommendations/generate （需要管理员 token，见 RequireAdmin）
func NewRouter(svc *RecommendService, m *metrics.Metrics, auth AdminAuth) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	h := &handler{svc: svc}
	r.Route("/recommendations", func(r chi.Router) {
		r.With(RequireAdmin(auth)).Post("/generate", h.generate)
		r.Get("/{userID}", h.forUser)
	})
	return r
}

type handler struct {
	svc *RecommendService
}

func (h *handler) forUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "userID must be a positive integer")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > MaxLimit {
			writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "limit must be between 1 and "+strconv.Itoa(MaxLimit))
			return
		}
	}

	out, err := h.svc.ForUser(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Generate(r.Context())
	if err != nil && !core.IsNoData(err) {
		h.fail(w, r, err)
		return
	}
	if res == nil {
		res = &engine.Result{}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Items:           res.Items,
		Ratings:         res.Ratings,
		Users:           res.Users,
		Alpha:           res.Alpha,
		Recommendations: res.Recommendations,
		Written:         res.Written,
		DurationMS:      res.Duration.Milliseconds(),
	})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	msg := http.StatusText(status)
	var de *core.DomainError
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeError(w, status, code, msg)
}

func statusFor(err error) (int, string) {
	de := core.GetDomainError(err)
	if de == nil {
		return http.StatusInternalServerError, core.ErrorCodeInternalError
	}
	switch de.Code {
	case core.ErrorCodeBusy:
		return http.StatusConflict, de.Code
	case core.ErrorCodeInvalidInput:
		return http.StatusBadRequest, de.Code
	case core.ErrorCodeUnauthorized:
		return http.StatusUnauthorized, de.Code
	case core.ErrorCodeForbidden:
		return http.StatusForbidden, de.Code
	case core.ErrorCodeNotFound:
		return http.StatusNotFound, de.Code
	case core.ErrorCodeNotSupported:
		return http.StatusNotImplemented, de.Code
	case core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable, de.Code
	default:
		return http.StatusInternalServerError, de.Code
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
