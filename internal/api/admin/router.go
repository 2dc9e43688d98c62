package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/events"
	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultRequestLimit is the number of requests allowed per client in one window.
	DefaultRequestLimit = 120
	// DefaultWindow is the rate limiting window.
	DefaultWindow = time.Minute
	// defaultEventLimit is the number of events returned without a limit parameter.
	defaultEventLimit = 20
)

// SnapshotReader returns the current state.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// EventHistory returns recently published events.
type EventHistory interface {
	Recent(ctx context.Context, limit int64) ([]events.Event, error)
}

// Options configures the router.
type Options struct {
	// State serves /status.
	State SnapshotReader
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Events serves /events; nil disables the route.
	Events EventHistory
	// RequestLimit is the per-client request budget in Window; zero uses the default.
	RequestLimit int
	// Window is the rate limiting window; zero uses the default.
	Window time.Duration
}

// NewRouter constructs the admin router.
func NewRouter(opts Options) http.Handler {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	if opts.RequestLimit <= 0 {
		opts.RequestLimit = DefaultRequestLimit
	}

	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(rateLimit(opts.RequestLimit, opts.Window))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", handleStatus(opts.State))

	if opts.Events != nil {
		r.Get("/events", handleEvents(opts.Events))
	}

	return r
}

// rateLimit limits requests per client IP and answers 429 with a JSON body.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limit_exceeded"})
		}),
	)
}

// requestLogger logs every request at debug level with the chi request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		ctx := logger.WithKV(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.DebugKV(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// errorResponse is the JSON body of failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth reports liveness.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus renders the current snapshot in the same JSON form as the state file.
func handleStatus(state SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := state.Snapshot(r.Context())
		if err != nil {
			logger.ErrorKV(r.Context(), "Failed to read state", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "state_unavailable"})

			return
		}

		data, err := codec.MarshalSnapshot(snapshot)
		if err != nil {
			logger.ErrorKV(r.Context(), "Failed to encode state", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "state_unavailable"})

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// handleEvents returns recent events, newest first.
func handleEvents(history EventHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := int64(defaultEventLimit)

		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed <= 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})

				return
			}

			limit = parsed
		}

		recent, err := history.Recent(r.Context(), limit)
		if err != nil {
			logger.ErrorKV(r.Context(), "Failed to read events", "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "events_unavailable"})

			return
		}

		writeJSON(w, http.StatusOK, recent)
	}
}

// writeJSON writes body as a JSON response.
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
