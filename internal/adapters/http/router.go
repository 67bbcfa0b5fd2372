package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/config"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
	"github.com/kirillkom/vehicle-checker/internal/observability/metrics"
)

const defaultMaxUploadBytes = 20 << 20

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics, service string) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
		rt.service = service
	}
}

// WithConfigCheckers lets GET /v1/settings report whether the lookup and
// recognition backends have what they need.
func WithConfigCheckers(lookup, recognition ports.ConfigChecker) RouterOption {
	return func(rt *Router) {
		rt.lookupChecker = lookup
		rt.recognitionChecker = recognition
	}
}

func WithClock(now func() time.Time) RouterOption {
	return func(rt *Router) {
		if now != nil {
			rt.now = now
		}
	}
}

type Router struct {
	cfg     config.Config
	lookups ports.PlateLookupService
	history ports.HistoryReader
	cache   ports.CacheAdmin
	spec    *apiSpec

	metrics            *metrics.HTTPServerMetrics
	service            string
	lookupChecker      ports.ConfigChecker
	recognitionChecker ports.ConfigChecker
	now                func() time.Time
	maxUploadBytes     int64
}

func NewRouter(
	cfg config.Config,
	lookups ports.PlateLookupService,
	history ports.HistoryReader,
	cache ports.CacheAdmin,
	opts ...RouterOption,
) (*Router, error) {
	spec, err := loadAPISpec(context.Background())
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:            cfg,
		lookups:        lookups,
		history:        history,
		cache:          cache,
		spec:           spec,
		service:        "vehicle-api",
		now:            time.Now,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	lookupGate := newInFlightGate(rt.cfg.LookupMaxInFlight, 0, func() { rt.recordRejected(kindBusy) })

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/lookups/registration", lookupGate.wrap(http.HandlerFunc(rt.lookupRegistration)))
	mux.Handle("/v1/lookups/image", lookupGate.wrap(http.HandlerFunc(rt.lookupImage)))
	mux.HandleFunc("/v1/history", rt.historyCollection)
	mux.HandleFunc("/v1/history/export", rt.exportHistory)
	mux.HandleFunc("/v1/cache", rt.clearCache)
	mux.HandleFunc("/v1/cache/sweep", rt.sweepCache)
	mux.HandleFunc("/v1/settings", rt.getSettings)
	mux.HandleFunc("/v1/settings/cache-ttl", rt.putCacheTTL)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func() { rt.recordRejected(kindRateLimited) })
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.spec.json)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(rt.service, reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Kind: "method_not_allowed"})
}
