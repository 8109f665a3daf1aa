// Package apiserver hosts generated entity routers behind a gin engine with
// the service root, health check, CORS and access logging.
package apiserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syssam/crudgen/docstore"
)

// RegisterFunc mounts entity routes on the API group. Generated code is
// mounted by wrapping routes.RegisterAll:
//
//	apiserver.New(cfg, store, func(rg *gin.RouterGroup, s docstore.Store) {
//		routes.RegisterAll(rg, s, crud.WithLogger(log))
//	}, log)
type RegisterFunc func(rg *gin.RouterGroup, store docstore.Store)

// Config configures a Server.
type Config struct {
	// Addr is the listen address.
	Addr string
	// Prefix is the path of the API group. Defaults to "/api".
	Prefix string
	// Name is reported by the service root.
	Name string
	// AllowOrigins lists CORS origins. Empty allows every origin.
	AllowOrigins []string
}

// Server is the HTTP server of a generated API.
type Server struct {
	engine *gin.Engine
	group  *gin.RouterGroup
	srv    *http.Server
	log    *zap.Logger
}

// New builds a Server and mounts the routes registered by register.
func New(cfg Config, store docstore.Store, register RegisterFunc, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.Name == "" {
		cfg.Name = "API"
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), Cors(cfg.AllowOrigins), AccessLog(log))
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": cfg.Name + " is running", "status": "ok"})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	group := engine.Group(cfg.Prefix)
	if register != nil {
		register(group, store)
	}
	return &Server{
		engine: engine,
		group:  group,
		log:    log,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves HTTP until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Group returns the API route group.
func (s *Server) Group() *gin.RouterGroup { return s.group }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }
