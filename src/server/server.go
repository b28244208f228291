package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "feedserv/src/configuration"
	"feedserv/src/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

const shutdownTimeout = 30 * time.Second

func NewRouter(config *cfg.Properties, handler *AppHandler, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware())
	router.Use(cors.New(corsConfig(config.Server.CorsOrigins)))
	router.MaxMultipartMemory = config.Server.MaxMultipartMB << 20

	if config.Server.Pprof {
		pprof.Register(router)
	}

	// Register Routes
	router.GET("/health", handler.GetHealth)
	router.GET("/", handler.Root)
	router.Static("/static", config.Server.StaticDir)

	api := router.Group("/api")
	api.POST("/upload-image", handler.UploadImages)
	api.POST("/add-entry", handler.AddEntry)
	api.GET("/get-entries", handler.GetEntries)

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
	})
	return router
}

func New(config *cfg.Properties, handler *AppHandler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", config.Server.Port),
			Handler:      NewRouter(config, handler, log),
			ReadTimeout:  config.Server.ReadTimeout,
			WriteTimeout: config.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start serves until the listener fails or SIGINT/SIGTERM arrives, then
// gives in-flight requests shutdownTimeout to finish.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("feedserv starting", "addr", s.httpServer.Addr)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			if err := s.httpServer.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		s.log.Info("shutdown complete")
	}
	return nil
}

func RunServer(config *cfg.Properties, handler *AppHandler, log *logger.Logger) error {
	return New(config, handler, log).Start()
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
