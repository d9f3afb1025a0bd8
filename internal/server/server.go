// Package server exposes the audit service over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fiscalfacil/audit-service/internal/audit"
	"github.com/fiscalfacil/audit-service/internal/auth"
	"github.com/fiscalfacil/audit-service/internal/logger"
	"github.com/fiscalfacil/audit-service/internal/registry"
	"github.com/fiscalfacil/audit-service/internal/store"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Deps are the collaborators the server routes requests to
type Deps struct {
	Companies *store.CompanyRepository
	Audit     *audit.Service
	Auth      *auth.Service
	Registry  *registry.Client
	DB        *gorm.DB
	Log       *zap.Logger
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	companies *store.CompanyRepository
	audit     *audit.Service
	auth      *auth.Service
	registry  *registry.Client
	db        *gorm.DB
	log       *zap.Logger
}

// NewServer creates a new API server
func NewServer(config *Config, deps Deps) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(log))

	s := &Server{
		config:    config,
		router:    router,
		companies: deps.Companies,
		audit:     deps.Audit,
		auth:      deps.Auth,
		registry:  deps.Registry,
		db:        deps.DB,
		log:       log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(auth.Middleware(s.auth))
	{
		v1.POST("/companies", s.handleCreateCompany)
		v1.GET("/companies", s.handleListCompanies)
		v1.GET("/companies/:id", s.handleGetCompany)

		v1.POST("/companies/:id/invoices/import", s.handleImport)
		v1.POST("/companies/:id/invoices/import-batch", s.handleImportBatch)
		v1.GET("/companies/:id/invoices", s.handleListInvoices)

		v1.GET("/companies/:id/statistics", s.handleStatistics)
		v1.GET("/companies/:id/metrics", s.handleMetrics)
		v1.GET("/companies/:id/report", s.handleReport)

		v1.GET("/registry/cnpj/:cnpj", s.handleRegistryLookup)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := store.Ping(s.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
