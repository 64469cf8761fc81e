// Package server exposes the tracker over HTTP: plant listings,
// per-plant detail and measurement series, raw image files, uploads,
// and a batch-analysis trigger.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"plant-tracker/internal/batch"
	"plant-tracker/internal/config"
	"plant-tracker/internal/store"
	"plant-tracker/internal/tracker"
)

// Server wires the HTTP API to the store and the tracker.
type Server struct {
	cfg     config.Config
	store   *store.Store
	tracker *tracker.Tracker
	runner  *batch.Runner
	log     *slog.Logger
	engine  *gin.Engine
}

// New builds the server and registers all routes.
func New(cfg config.Config, st *store.Store, tr *tracker.Tracker, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		cfg:     cfg,
		store:   st,
		tracker: tr,
		runner:  batch.New(tr, log),
		log:     log,
		engine:  engine,
	}

	engine.GET("/healthz", s.handleHealthz)

	api := engine.Group("/api")
	api.GET("/plants", s.handleListPlants)
	api.GET("/plants/:id", s.handleGetPlant)
	api.GET("/plants/:id/measurements", s.handlePlantMeasurements)
	api.GET("/images/:id", s.handleGetImage)
	api.GET("/images/:id/file", s.handleGetImageFile)
	api.GET("/images/:id/thumbnail", s.handleImageThumbnail)
	api.POST("/images", s.handleUploadImage)
	api.POST("/analyze", s.handleAnalyze)

	return s
}

// Engine returns the underlying gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run blocks serving the API on the configured address.
func (s *Server) Run() error {
	s.log.Info("serving API", "addr", s.cfg.Addr())
	return s.engine.Run(s.cfg.Addr())
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
