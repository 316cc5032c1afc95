package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/kpath_tracer/pkg/config"
	"github.com/azybler/kpath_tracer/pkg/metrics"
)

// RequestIDHeader carries the server-generated request id.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg config.Server, handlers *Handlers, log *logrus.Logger) *http.Server {
	mux := http.NewServeMux()

	// Concurrency limiter shared by all API routes.
	sem := make(chan struct{}, cfg.MaxConcurrent)
	route := func(pattern, path string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, withMiddleware(path, h, sem, cfg, log))
	}

	route("POST /api/v1/paths", "/api/v1/paths", handlers.HandlePaths)
	route("GET /api/v1/runs/{id}", "/api/v1/runs/{id}", handlers.HandleRun)
	route("GET /api/v1/health", "/api/v1/health", handlers.HandleHealth)
	route("GET /api/v1/stats", "/api/v1/stats", handlers.HandleStats)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe runs srv until ctx is done or SIGTERM/SIGINT arrives, then
// shuts it down gracefully.
func ListenAndServe(ctx context.Context, srv *http.Server, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// statusRecorder captures the status code written by a handler. Only the
// first WriteHeader reaches the underlying writer.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// withMiddleware wraps a handler with request ids, security headers, CORS,
// concurrency limiting, recovery, a request timeout, access logging and
// metrics. path is the route pattern used as the metrics label.
func withMiddleware(path string, handler http.HandlerFunc, sem chan struct{}, cfg config.Server, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		requestID := uuid.NewString()
		rec.Header().Set(RequestIDHeader, requestID)

		// Security headers.
		rec.Header().Set("X-Content-Type-Options", "nosniff")
		rec.Header().Set("X-Frame-Options", "DENY")
		rec.Header().Set("Cache-Control", "no-store")

		if cfg.CORSOrigin != "" {
			rec.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		defer func() {
			status := strconv.Itoa(rec.status)
			elapsed := time.Since(start)
			metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, path, status).Observe(elapsed.Seconds())
			log.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"elapsed":    elapsed.Round(time.Microsecond),
			}).Info("request")
		}()

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusServiceUnavailable, ErrorResponse{Error: "service_unavailable"})
			return
		}

		defer func() {
			if p := recover(); p != nil {
				log.WithFields(logrus.Fields{
					"request_id": requestID,
					"panic":      p,
				}).Error("handler panic")
				// A response already under way cannot be replaced.
				if !rec.wroteHeader {
					writeError(rec, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
				}
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
		defer cancel()

		handler(rec, r.WithContext(ctx))
	}
}
