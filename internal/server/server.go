package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/entity-catalog/internal/config"
	"github.com/jonathan/entity-catalog/internal/server/ratelimit"
	"github.com/jonathan/entity-catalog/internal/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// TreeService serves the cached catalog trees.
type TreeService interface {
	GetDomainTree(ctx context.Context, force bool) []types.DomainNode
	GetEntityTree(ctx context.Context, domain, subDomain string, force bool) ([]*types.TreeNode, error)
}

// EntityStore is the database access used by the count, detail and health routes.
type EntityStore interface {
	SchemaExists(ctx context.Context) (bool, error)
	CountEntities(ctx context.Context) (int64, error)
	CountEntitiesByDomain(ctx context.Context) (map[string]int64, error)
	GetEntity(ctx context.Context, entityID int64) (*types.Entity, error)
	ListEntitySources(ctx context.Context, entityID int64) ([]types.EntitySource, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	cfg         *config.Config
	store       EntityStore
	trees       TreeService
	rateLimiter *ratelimit.Limiter
	log         logrus.FieldLogger
}

// New creates a new server instance
func New(cfg *config.Config, store EntityStore, trees TreeService, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		cfg:         cfg,
		store:       store,
		trees:       trees,
		rateLimiter: ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit)),
		log:         logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Entity statistics and trees
	mux.HandleFunc("GET /api/entities/count", s.handleCountEntities)
	mux.HandleFunc("GET /api/entities/count-by-domain", s.handleCountByDomain)
	mux.HandleFunc("GET /api/entities/domains-tree", s.handleDomainsTree)
	mux.HandleFunc("GET /api/entities/entities-tree", s.handleEntitiesTree)

	// Entity detail
	mux.HandleFunc("GET /api/entity-detail/entity", s.handleGetEntity)
	mux.HandleFunc("GET /api/entity-detail/entity-sources", s.handleGetEntitySources)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(s.withJSONErrors(mux))))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	}
	s.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.rateLimiter.Stop()
	s.log.Info("Server stopped")
	return nil
}

// Close releases background resources without serving.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	origins := s.cfg.Server.CORSOrigins
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			rateLimited.WithLabelValues(r.URL.Path).Inc()
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging and a request id
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFor(r)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, route, fmt.Sprintf("%d", rec.status)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		entry := s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   elapsed,
			"remote":     r.RemoteAddr,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	})
}

// captureWriter records the status of the mux fallback handlers without a body.
type captureWriter struct {
	header http.Header
	status int
}

func (c *captureWriter) Header() http.Header         { return c.header }
func (c *captureWriter) Write(b []byte) (int, error) { return len(b), nil }
func (c *captureWriter) WriteHeader(code int)        { c.status = code }

// withJSONErrors turns the mux's plain-text 404 and 405 replies into JSON.
func (s *Server) withJSONErrors(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		capture := &captureWriter{header: make(http.Header), status: http.StatusNotFound}
		h.ServeHTTP(capture, r)

		if allow := capture.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		switch capture.status {
		case http.StatusMethodNotAllowed:
			s.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			s.errorResponse(w, http.StatusNotFound, "Resource not found")
		}
	})
}

// handleIndex returns basic API information
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"name":        s.cfg.App.Name,
		"version":     s.cfg.App.Version,
		"description": "Entity catalog API: entity statistics, domain and entity trees, entity details",
		"endpoints": map[string]string{
			"total_entities":     "/api/entities/count",
			"entities_by_domain": "/api/entities/count-by-domain",
			"domains_tree":       "/api/entities/domains-tree",
			"entities_tree":      "/api/entities/entities-tree",
			"entity":             "/api/entity-detail/entity",
			"entity_sources":     "/api/entity-detail/entity-sources",
		},
	})
}

// handleHealth returns server health and catalog schema availability
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	schema := s.cfg.Database.Schema
	var dbStatus string
	exists, err := s.store.SchemaExists(ctx)
	switch {
	case err != nil:
		dbStatus = "error: " + err.Error()
	case exists:
		dbStatus = fmt.Sprintf("connected (%s schema available)", schema)
	default:
		dbStatus = fmt.Sprintf("connected (%s schema not found)", schema)
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"app_name":  s.cfg.App.Name,
		"db_status": dbStatus,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// handleError maps err to its status. Internal failures only carry details in
// the development profile.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status != http.StatusInternalServerError {
		s.errorResponse(w, status, err.Error())
		return
	}

	s.log.WithError(err).Error("request failed")
	body := map[string]string{"error": "Internal server error"}
	if s.cfg.Debug() {
		body["details"] = err.Error()
	}
	s.jsonResponse(w, status, body)
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.log.WithFields(logrus.Fields{
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}).Warn("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// requestIDFor reuses a caller supplied X-Request-ID or mints a new one.
func requestIDFor(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return newRequestID()
}
