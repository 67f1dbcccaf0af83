// Package server exposes the task database over the HTTP API consumed by
// internal/api. It is the arbiter of row_version: stale writes get 409.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/tgienger/worksphere/internal/db"
	"github.com/tgienger/worksphere/internal/logging"
)

// Server is the task API server
type Server struct {
	db       *db.DB
	logger   *logging.Logger
	router   *gin.Engine
	language language.Tag
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithLanguage sets the message language used when a request sends no
// Accept-Language header
func WithLanguage(tag language.Tag) Option {
	return func(s *Server) { s.language = tag }
}

// New creates a server backed by database
func New(database *db.DB, opts ...Option) *Server {
	s := &Server{
		db:       database,
		logger:   logging.NopLogger(),
		language: language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.localize())
	s.router = router

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api", s.identify())
	{
		api.GET("/projects", s.handleListProjects)
		api.GET("/projects/:id/tasks", s.handleListTasks)
		api.GET("/projects/:id/recycle-bin", s.handleRecycleBin)

		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.PATCH("/tasks/:id/reorder", s.handleReorderTask)
		api.POST("/tasks/:id/restore", s.handleRestoreTask)
		api.PUT("/tasks/:id/lock", s.handleLockTask)
		api.GET("/tasks/:id/history", s.handleHistory)
		api.POST("/tasks/:id/subtasks", s.handleCreateSubtask)
		api.POST("/tasks/:id/comments", s.handleCreateComment)
		api.POST("/tasks/:id/time-logs", s.handleCreateTimeLog)

		api.PUT("/subtasks/:id", s.handleUpdateSubtask)
		api.DELETE("/subtasks/:id", s.handleDeleteSubtask)
		api.PATCH("/subtasks/:id/reorder", s.handleReorderSubtask)
	}

	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("stopped")
	return nil
}
