package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
)

// Gateway represents the triage HTTP API
type Gateway struct {
	server   *http.Server
	router   *mux.Router
	cases    CaseService
	requests RequestService
	health   http.Handler
	config   config.APIConfig
	metrics  config.MetricsConfig
	logger   *zap.Logger
	now      func() time.Time
}

// CaseService drives escalation cases
type CaseService interface {
	Open(ctx context.Context, in escalation.Intake) (*escalation.Case, error)
	Process(ctx context.Context, in escalation.Intake) (*escalation.Case, error)
	Submit(ctx context.Context, caseID string) (*escalation.Case, error)
	Approve(ctx context.Context, caseID, agent string) (*escalation.Case, error)
	Reject(ctx context.Context, caseID, agent, reason string) (*escalation.Case, error)
	Get(ctx context.Context, caseID string) (*escalation.Case, error)
	List(ctx context.Context, state escalation.State, olderThan time.Duration) ([]*escalation.Case, error)
}

// RequestService reads and distributes compensation requests
type RequestService interface {
	Get(ctx context.Context, id string) (*ledger.CompensationRequest, error)
	MarkDistributed(ctx context.Context, id, actor string) (ledger.Result, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*ledger.CompensationRequest, error)
}

// NewGateway creates a new API gateway. health may be nil.
func NewGateway(cfg config.APIConfig, metricsCfg config.MetricsConfig, cases CaseService, requests RequestService, health http.Handler, logger *zap.Logger) *Gateway {
	g := &Gateway{
		router:   mux.NewRouter(),
		cases:    cases,
		requests: requests,
		health:   health,
		config:   cfg,
		metrics:  metricsCfg,
		logger:   logging.OrNop(logger).Named("api"),
		now:      func() time.Time { return time.Now().UTC() },
	}

	g.setupRoutes()
	g.setupMiddleware()

	var handler http.Handler = g.router
	if cfg.EnableCORS {
		handler = g.cors().Handler(handler)
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return g
}

// Handler returns the fully wrapped HTTP handler
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

func (g *Gateway) setupRoutes() {
	api := g.router.PathPrefix("/api/v1").Subrouter()

	cases := api.PathPrefix("/cases").Subrouter()
	cases.HandleFunc("", g.handleListCases).Methods(http.MethodGet)
	cases.HandleFunc("", g.handleCreateCase).Methods(http.MethodPost)
	cases.HandleFunc("/{id}", g.handleGetCase).Methods(http.MethodGet)
	cases.HandleFunc("/{id}/submit", g.handleSubmitCase).Methods(http.MethodPost)
	cases.HandleFunc("/{id}/approve", g.handleApproveCase).Methods(http.MethodPost)
	cases.HandleFunc("/{id}/reject", g.handleRejectCase).Methods(http.MethodPost)

	requests := api.PathPrefix("/requests").Subrouter()
	requests.HandleFunc("/{id}", g.handleGetRequest).Methods(http.MethodGet)
	requests.HandleFunc("/{id}/distribute", g.handleDistributeRequest).Methods(http.MethodPost)

	api.HandleFunc("/players/{id}/requests", g.handleListPlayerRequests).Methods(http.MethodGet)

	if g.health != nil {
		g.router.Handle("/health", g.health).Methods(http.MethodGet)
	}
	if g.metrics.Enabled {
		g.router.Handle(g.metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}
}

func (g *Gateway) setupMiddleware() {
	g.router.Use(g.loggingMiddleware)
	g.router.Use(g.limitMiddleware)
}

func (g *Gateway) cors() *cors.Cors {
	origins := g.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
}

// Start starts the API gateway
func (g *Gateway) Start() error {
	g.logger.Info("starting API gateway", zap.String("addr", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop stops the API gateway
func (g *Gateway) Stop(ctx context.Context) error {
	g.logger.Info("stopping API gateway")
	return g.server.Shutdown(ctx)
}

// Response types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type APIMeta struct {
	Total int `json:"total"`
}

// Helper functions

func (g *Gateway) writeJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		g.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (g *Gateway) writeErrorResponse(w http.ResponseWriter, status int, code, message, details string) {
	g.writeJSONResponse(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (g *Gateway) writeSuccessResponse(w http.ResponseWriter, status int, data interface{}, meta *APIMeta) {
	g.writeJSONResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func parseRequestBody(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

// Middleware implementations

func (g *Gateway) limitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.config.MaxRequestSize > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, g.config.MaxRequestSize)
		}
		if g.config.RequestTimeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), g.config.RequestTimeout)
			defer cancel()
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		duration := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(duration.Seconds())

		g.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
