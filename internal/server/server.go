// Package server serves the task API over a sqlite store and pushes change
// events to websocket subscribers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"taskdeck/internal/api"
	"taskdeck/internal/task"
)

// Store is the persistence the server needs. *storage.Store satisfies it.
type Store interface {
	FetchAll(ctx context.Context, filters task.Filters) ([]task.Task, error)
	Add(ctx context.Context, in task.CreateInput) (task.Task, error)
	Update(ctx context.Context, in task.UpdateInput) error
	Delete(ctx context.Context, id int) error
}

// BasePath is where the task endpoints are mounted.
const BasePath = "/api/Task"

type Server struct {
	store     Store
	hub       *Hub
	validator *validator.Validate
	logger    *slog.Logger
	router    chi.Router
}

func New(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		hub:       NewHub(logger),
		validator: validator.New(),
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/events", s.hub.ServeWS)

	r.Route(BasePath, func(r chi.Router) {
		r.Post(api.PathList, s.handleList)
		r.Post(api.PathSave, s.handleSave)
		r.Post(api.PathUpdate, s.handleUpdate)
		r.Delete(api.PathDelete+"/{id}", s.handleDelete)
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub exposes the change feed, mainly for tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("task api listening", "addr", ln.Addr().String(), "base_path", BasePath)
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("task api stopped")
	return nil
}
