// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"agromarket_backend/internal/alert"
	"agromarket_backend/internal/category"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/crop"
	"agromarket_backend/internal/jobs"
	"agromarket_backend/internal/location"
	"agromarket_backend/internal/middleware"
	"agromarket_backend/internal/platform/cache"
	"agromarket_backend/internal/post"
	"agromarket_backend/internal/shared"
	"agromarket_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	userHandler     *user.Handler
	locationHandler *location.Handler
	categoryHandler *category.Handler
	postHandler     *post.Handler
	alertHandler    *alert.Handler
	cropHandler     *crop.Handler

	// Jobs
	postExpiryJob *jobs.PostExpiryJob

	// Middleware instances
	authMW         gin.HandlerFunc
	optionalAuthMW gin.HandlerFunc
	moderatorMW    gin.HandlerFunc
	staffMW        gin.HandlerFunc
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *user.Handler,
	locationHandler *location.Handler,
	categoryHandler *category.Handler,
	postHandler *post.Handler,
	alertHandler *alert.Handler,
	cropHandler *crop.Handler,
	postExpiryJob *jobs.PostExpiryJob,
	tokenVerifier shared.TokenVerifier,
	appCache *cache.Cache,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	// CORS Middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Create middleware instances
	authMW := middleware.AuthMiddleware(tokenVerifier, logger.Named("AuthMiddleware"))
	optionalAuthMW := middleware.OptionalAuthMiddleware(tokenVerifier, logger.Named("AuthMiddleware"))
	moderatorMW := middleware.RequireModerator()
	staffMW := middleware.RequireStaff()

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "UP", "message": "AgroMarket API is healthy!"}
		if appCache != nil {
			if err := appCache.Health(c.Request.Context()); err != nil {
				status["cache"] = "DOWN"
			} else {
				status["cache"] = "UP"
			}
		}
		c.JSON(http.StatusOK, status)
	})

	v1 := router.Group("/api/v1")

	userHandler.RegisterRoutes(v1, authMW, optionalAuthMW)
	locationHandler.RegisterRoutes(v1)
	categoryHandler.RegisterRoutes(v1, authMW, optionalAuthMW, staffMW)
	postHandler.RegisterRoutes(v1, authMW, optionalAuthMW, moderatorMW)
	alertHandler.RegisterRoutes(v1, authMW, moderatorMW)
	cropHandler.RegisterRoutes(v1, authMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		router:          router,
		cfg:             cfg,
		logger:          logger,
		userHandler:     userHandler,
		locationHandler: locationHandler,
		categoryHandler: categoryHandler,
		postHandler:     postHandler,
		alertHandler:    alertHandler,
		cropHandler:     cropHandler,
		postExpiryJob:   postExpiryJob,
		authMW:          authMW,
		optionalAuthMW:  optionalAuthMW,
		moderatorMW:     moderatorMW,
		staffMW:         staffMW,
	}, nil
}

func (s *Server) Start() error {
	if s.postExpiryJob != nil {
		if err := s.postExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start post expiry job", zap.Error(err))
		}
	} else {
		s.logger.Info("Post expiry job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.postExpiryJob != nil {
		s.postExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
