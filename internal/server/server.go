package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/config"
	"github.com/LdDl/shaderoute/internal/metrics"
	"github.com/LdDl/shaderoute/internal/service"
)

// Planner is what handlers need from the service layer
type Planner interface {
	Plan(ctx context.Context, req service.Request) (*service.Plan, error)
}

type Server struct {
	planner    Planner
	defaultKey *shaderoute.DatasetKey
	cfg        config.ServerConfig
}

func New(planner Planner, cfg config.ServerConfig, options ...func(*Server)) *Server {
	srv := &Server{
		planner: planner,
		cfg:     cfg,
	}
	for _, option := range options {
		option(srv)
	}
	return srv
}

// WithDefaultKey sets dataset used when request has no season/period
func WithDefaultKey(key shaderoute.DatasetKey) func(*Server) {
	return func(srv *Server) {
		srv.defaultKey = &key
	}
}

// Router builds HTTP handler with every endpoint mounted
func (srv *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	allowed := srv.cfg.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", srv.health)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/routes", srv.routes)
	})
	r.Post("/percorsi", srv.percorsi)
	return r
}

// ListenAndServe blocks until ctx is done or server fails
func (srv *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(srv.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(srv.cfg.WriteTimeoutSecs) * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", srv.cfg.Port))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server listen")
	}
	return nil
}

func (srv *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("can't write response", zap.Error(err))
	}
}

// writeError maps domain errors to HTTP statuses
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shaderoute.ErrInvalidRequest), errors.Is(err, shaderoute.ErrInvalidDatasetKey):
		status = http.StatusBadRequest
	case errors.Is(err, shaderoute.ErrDatasetNotFound):
		status = http.StatusNotFound
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Status:  "error",
		Code:    status,
		Message: message,
	})
}
