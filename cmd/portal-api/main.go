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

	_ "github.com/campusdesk/request-portal-api/api/swagger"
	"github.com/campusdesk/request-portal-api/internal/handler"
	"github.com/campusdesk/request-portal-api/internal/middleware"
	"github.com/campusdesk/request-portal-api/internal/models"
	"github.com/campusdesk/request-portal-api/internal/repository"
	"github.com/campusdesk/request-portal-api/internal/service"
	"github.com/campusdesk/request-portal-api/pkg/cache"
	"github.com/campusdesk/request-portal-api/pkg/config"
	"github.com/campusdesk/request-portal-api/pkg/database"
	"github.com/campusdesk/request-portal-api/pkg/logger"
	corsmiddleware "github.com/campusdesk/request-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusdesk/request-portal-api/pkg/middleware/requestid"
	"github.com/campusdesk/request-portal-api/pkg/storage"
)

// @title Campus Request Portal API
// @version 1.0.0
// @description Student request handling: submissions, review workflow, discussion threads and notifications
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The unread-count cache is an optimization; the portal runs without it.
		logr.Sugar().Warnw("redis unavailable, unread counts served from postgres", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	validate := validator.New()
	scope := service.NewAccessScope()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, redisClient, logr, cfg.Notifications, metricsSvc)
	requestSvc := service.NewRequestService(requestRepo, directoryRepo, notificationSvc, scope, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, requestRepo, directoryRepo, notificationSvc, scope, logr)
	directorySvc := service.NewDirectoryService(directoryRepo, logr)
	attachmentSvc := service.NewAttachmentService(requestRepo, store, signer, scope, logr, cfg.Attachments.MaxFileSizeBytes)
	exportSvc := service.NewExportService(requestRepo, scope, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, attachmentSvc, exportSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Signed-token downloads carry their own authorization.
	api.GET("/attachments/download", requestHandler.DownloadAttachment)

	requests := api.Group("/requests", middleware.JWT(authSvc))
	{
		requests.POST("", middleware.RequireRoles(models.RoleStudent), requestHandler.Create)
		requests.GET("", requestHandler.List)
		if cfg.Exports.Enabled {
			requests.GET("/export", middleware.RequireRoles(models.RoleAdmin), requestHandler.Export)
		}
		requests.GET("/:id", requestHandler.Get)
		requests.PATCH("/:id/status", middleware.RequireStaff(), requestHandler.UpdateStatus)
		requests.PATCH("/:id/assign", middleware.RequireRoles(models.RoleAdmin), requestHandler.Assign)
		requests.GET("/:id/attachment", requestHandler.AttachmentURL)
		requests.GET("/:id/comments", commentHandler.List)
		requests.POST("/:id/comments", commentHandler.Add)
	}

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/count", notificationHandler.UnreadCount)
		notifications.POST("/read", notificationHandler.MarkAllRead)
		notifications.DELETE("/:id", notificationHandler.MarkOne)
	}

	directory := api.Group("/directory", middleware.JWT(authSvc))
	{
		directory.GET("/departments", directoryHandler.Departments)
		directory.GET("/departments/:id/courses", directoryHandler.Courses)
		directory.GET("/departments/:id/lecturers", directoryHandler.Lecturers)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
