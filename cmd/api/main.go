package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/askdocs/docqa-api/api/swagger"
	"github.com/askdocs/docqa-api/internal/engine"
	"github.com/askdocs/docqa-api/internal/handler"
	"github.com/askdocs/docqa-api/internal/middleware"
	"github.com/askdocs/docqa-api/internal/queue"
	"github.com/askdocs/docqa-api/internal/repository"
	"github.com/askdocs/docqa-api/internal/service"
	"github.com/askdocs/docqa-api/pkg/cache"
	"github.com/askdocs/docqa-api/pkg/config"
	"github.com/askdocs/docqa-api/pkg/database"
	"github.com/askdocs/docqa-api/pkg/logger"
	corsmiddleware "github.com/askdocs/docqa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/askdocs/docqa-api/pkg/middleware/requestid"
	"github.com/askdocs/docqa-api/pkg/storage"
)

// @title AskDocs API
// @version 1.0.0
// @description Document question-answering backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	uploadStorage, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	engineClient, err := engine.NewClient(cfg.Engine)
	if err != nil {
		logr.Sugar().Fatalw("failed to init engine client", "error", err)
	}

	documentRepo := repository.NewDocumentRepository(db)
	qaRepo := repository.NewQaRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	jobQueue := queue.NewRedisQueue(redisClient, cfg.Queue.Name)

	validate := validator.New()
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "docqa-api",
	})
	documentService := service.NewDocumentService(documentRepo, jobQueue, uploadStorage, engineClient, cacheRepo, metricsService, logr, service.DocumentServiceConfig{
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
	})
	qaService := service.NewQaService(qaRepo, documentRepo, cacheRepo, engineClient, metricsService, logr, service.QaServiceConfig{
		CacheTTL: cfg.QACache.TTL,
	})
	exportService := service.NewExportService(qaRepo, documentRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService)
	qaHandler := handler.NewQaHandler(qaService, exportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	documents := api.Group("/documents")
	{
		// The worker reports status without a user token.
		documents.POST("/callback/status", documentHandler.StatusCallback)

		protected := documents.Group("", middleware.JWT(authService))
		protected.POST("/upload", documentHandler.Upload)
		protected.GET("", documentHandler.List)
		protected.DELETE("/:id", documentHandler.Delete)
		// Legacy alias kept for existing frontends.
		protected.POST("/query", qaHandler.Ask)
	}

	qa := api.Group("/qa", middleware.JWT(authService))
	{
		qa.POST("/ask", qaHandler.Ask)
		qa.GET("/history/:documentId", qaHandler.History)
		qa.GET("/history/:documentId/export", qaHandler.ExportHistory)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
