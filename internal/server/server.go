package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/pages"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/storage/sqlite"
)

// Server provides HTTP handlers for the task tracker.
type Server struct {
	engine   *gin.Engine
	store    *sqlite.Store
	auth     *service.AuthService
	tasks    *service.TaskService
	comments *service.CommentService
	sessions *session.Manager
	pages    *pages.Renderer
	logger   *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, sessions *session.Manager, renderer *pages.Renderer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = pages.NewRenderer(pages.EmbeddedSource{}, logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:   router,
		store:    store,
		auth:     service.NewAuthService(store, logger),
		tasks:    service.NewTaskService(store),
		comments: service.NewCommentService(store),
		sessions: sessions,
		pages:    renderer,
		logger:   logger,
	}

	router.Use(requestID(), srv.accessLog())
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires page, auth and API handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/login", s.handleLoginPage)
	s.engine.POST("/login", s.handleLogin)
	s.engine.GET("/register", s.handleRegisterPage)
	s.engine.POST("/register", s.handleRegister)
	s.engine.GET("/logout", s.handleLogout)

	tasks := s.engine.Group("/tasks", s.requireSession())
	{
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/:id/comments", s.handleListComments)
		tasks.POST("/:id/comments", s.handleAddComment)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to a non-negative int64.
// Anything else is treated as an unmatched route.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// respondError logs the error and returns a JSON payload.
// Server-side failures are reported to the client without detail.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", msg))
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// respondServiceError maps service errors onto HTTP statuses.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingField):
		s.respondError(c, http.StatusBadRequest, err)
	default:
		s.respondError(c, http.StatusInternalServerError, err)
	}
}

// respondSuccess writes payload as JSON, or just the status when it is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
