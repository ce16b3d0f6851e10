// Package main runs the live-shopping backend HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/streamcart/backend/config"
	"github.com/streamcart/backend/internal/admin"
	"github.com/streamcart/backend/internal/auth"
	"github.com/streamcart/backend/internal/credentials"
	"github.com/streamcart/backend/internal/discovery"
	"github.com/streamcart/backend/internal/influencers"
	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
	"github.com/streamcart/backend/internal/realtime"
	"github.com/streamcart/backend/internal/sessions"
	"github.com/streamcart/backend/internal/streaming/zego"
	"github.com/streamcart/backend/internal/worker"
	"github.com/streamcart/backend/pkg/database"
	"github.com/streamcart/backend/pkg/queue"
	"github.com/streamcart/backend/pkg/redis"
	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/storage"
	"github.com/streamcart/backend/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ThumbnailsBucket:     cfg.AWS.ThumbnailsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Credentials vault and issuance
	credRepo := credentials.NewRepository(pool)
	var minter credentials.Minter
	if tokenSvc, err := zego.NewTokenService(cfg.Zego.AppID, cfg.Zego.ServerSecret, cfg.Zego.TokenValidSec); err == nil {
		minter = tokenSvc
	} else {
		logger.Warn("zego token generation disabled", zap.Error(err))
	}
	credService := credentials.NewService(credRepo, minter, logger)

	// Sessions
	sessionStore := sessions.NewRepository(pool)
	sessionService := sessions.NewService(sessionStore, credService, logger)

	// Viewer presence
	seen := presence.NewRedisSeenStore(rdb.Client)
	aggregator := presence.NewAggregator(sessionStore, seen, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	sessionHandler := sessions.NewHandler(sessionService, aggregator, jobQueue, hub, s3Client, logger)

	// Discovery projections
	discoveryService := discovery.NewService(sessionStore, credRepo, logger)
	discoveryHandler := discovery.NewHandler(discoveryService, logger)

	// Auth + influencer onboarding
	authRepo := auth.NewRepository(pool)
	influencerRepo := influencers.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, influencerRepo, jwtService, logger)

	// Admin surface
	adminRepo := admin.NewRepository(pool)
	adminSessions := admin.NewSessionService(cfg.Admin.Secret, time.Duration(cfg.Admin.ExpireMinutes)*time.Minute)
	adminHandler := admin.NewHandler(adminRepo, adminSessions, logger)
	credHandler := credentials.NewHandler(credService, logger)
	if cfg.Admin.BootstrapEmail != "" && cfg.Admin.BootstrapPassword != "" {
		hash, err := utils.HashPassword(cfg.Admin.BootstrapPassword)
		if err == nil {
			err = adminRepo.EnsureBootstrap(ctx, cfg.Admin.BootstrapEmail, hash)
		}
		if err != nil {
			logger.Warn("admin bootstrap failed", zap.Error(err))
		}
	}

	jwtValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Discovery (public)
	router.GET("/live", discoveryHandler.ListLive)
	router.GET("/live/stats", discoveryHandler.LiveStats)
	router.GET("/upcoming", discoveryHandler.ListUpcoming)
	router.GET("/sessions/:id", sessionHandler.Get)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/sessions", middleware.RequireRole(string(models.RoleInfluencer)), sessionHandler.Create)
		api.POST("/sessions/:id/start", middleware.RequireRole(string(models.RoleInfluencer)), sessionHandler.Start)
		api.POST("/sessions/:id/end", middleware.RequireRole(string(models.RoleInfluencer)), sessionHandler.End)
		api.POST("/sessions/:id/cancel", middleware.RequireRole(string(models.RoleInfluencer)), sessionHandler.Cancel)
		api.POST("/sessions/:id/thumbnail-upload-url", middleware.RequireRole(string(models.RoleInfluencer)), sessionHandler.ThumbnailUploadURL)

		api.POST("/sessions/:id/join", sessionHandler.Join)
		api.POST("/sessions/:id/leave", sessionHandler.Leave)

		api.GET("/influencers/me/dashboard", middleware.RequireRole(string(models.RoleInfluencer)), discoveryHandler.Dashboard)
	}

	// Admin surface (independent session, separate secret)
	router.POST("/admin/login", adminHandler.Login)
	adminAPI := router.Group("/admin")
	adminAPI.Use(admin.Guard(adminSessions))
	{
		adminAPI.GET("/influencers", credHandler.ListInfluencers)
		adminAPI.GET("/influencers/:id/credentials", credHandler.GetCredentials)
		adminAPI.PUT("/influencers/:id/credentials", credHandler.UpdateCredentials)
		adminAPI.POST("/influencers/:id/credentials/generate", credHandler.GenerateCredentials)
		adminAPI.PATCH("/influencers/:id/streaming", credHandler.SetStreaming)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, aggregator, sessionService, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (session wrap-ups)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	wrapupProcessor := worker.NewWrapupProcessor(sessionStore, seen, jobQueue, logger)
	go wrapupProcessor.Run(workerCtx)
	logger.Info("wrapup worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
