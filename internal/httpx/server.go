package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/logging"
	"github.com/ariefcatur/go-parts-fulfillment/internal/metrics"
)

const maxBodyBytes = 1 << 20

type RouterDeps struct {
	Orders     OrderService
	Rejections RejectionService
	Inventory  InventoryService
	Logger     *zap.Logger
	Metrics    *metrics.ServerMetrics
	Gatherer   prometheus.Gatherer
	Timeout    time.Duration
}

func NewRouter(deps RouterDeps) *chi.Mux {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(log), instrument(deps.Metrics))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	if deps.Orders != nil {
		(&OrdersHandler{Service: deps.Orders}).Register(r)
	}
	if deps.Rejections != nil {
		(&RejectionsHandler{Service: deps.Rejections}).Register(r)
	}
	if deps.Inventory != nil {
		(&InventoryHandler{Service: deps.Inventory}).Register(r)
	}
	return r
}

// requestLogger attaches a request-scoped logger and writes one line per request.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			if actor, ok := actorFrom(r); ok {
				log = log.With(zap.String("actor_id", actor.ID))
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), log)))
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func instrument(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.Observe(route, ww.Status(), time.Since(start))
		})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON leaves dst untouched when the body is empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			WriteError(r.Context(), w, NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, io.EOF):
			if optional {
				return true
			}
			WriteError(r.Context(), w, NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			WriteError(r.Context(), w, NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		}
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeServiceError(r.Context(), w, ledger.Invalid("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
