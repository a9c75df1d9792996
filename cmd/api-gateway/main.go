package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-announce-api/api/swagger"
	"github.com/noah-isme/sma-announce-api/internal/handler"
	"github.com/noah-isme/sma-announce-api/internal/middleware"
	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/internal/repository"
	"github.com/noah-isme/sma-announce-api/internal/service"
	"github.com/noah-isme/sma-announce-api/pkg/cache"
	"github.com/noah-isme/sma-announce-api/pkg/config"
	"github.com/noah-isme/sma-announce-api/pkg/database"
	"github.com/noah-isme/sma-announce-api/pkg/jobs"
	"github.com/noah-isme/sma-announce-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-announce-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-announce-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

// @title SMA Announce API
// @version 0.1.0
// @description Audience-scoped announcement distribution and visibility resolution
// @BasePath /
// @schemes http

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
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := false
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		cacheEnabled = true
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Feed.SummaryCacheTTL, logr, cacheEnabled)

	announcementRepo := repository.NewAnnouncementRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)

	authService := service.NewAuthService(cfg.JWT.Secret)
	announcementService := service.NewAnnouncementService(announcementRepo, nil, cacheService, logr)
	visibilityService := service.NewVisibilityService(announcementRepo, metricsService, logr)
	receiptService := service.NewReceiptService(receiptRepo, announcementRepo, cacheService, metricsService, logr)

	attachmentSigner := storage.NewSignedURLSigner(cfg.Feed.AttachmentSecret, cfg.Feed.AttachmentTTL)
	attachmentResolver := service.NewSignedAttachmentResolver(attachmentSigner, cfg.APIPrefix+"/attachments")

	feedService := service.NewFeedService(visibilityService, receiptService, attachmentResolver, cacheService, logr, service.FeedServiceConfig{
		NewWindow:       cfg.Feed.NewWindow,
		ExpiringWindow:  cfg.Feed.ExpiringWindow,
		DefaultPageSize: cfg.Feed.DefaultPageSize,
		MaxPageSize:     cfg.Feed.MaxPageSize,
		SummaryCacheTTL: cfg.Feed.SummaryCacheTTL,
	})

	announcementHandler := handler.NewAnnouncementHandler(announcementService, visibilityService)
	feedHandler := handler.NewFeedHandler(feedService, receiptService)
	metricsHandler := handler.NewMetricsHandler(metricsService, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))

	api.POST("/announcements", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Create)
	api.GET("/announcements/:id", announcementHandler.Get)
	api.PUT("/announcements/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Update)
	api.DELETE("/announcements/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), announcementHandler.Delete)
	api.POST("/announcements/:id/read", feedHandler.MarkRead)
	api.GET("/feed", feedHandler.Feed)
	api.GET("/feed/summary", feedHandler.Summary)

	if cfg.AckReports.Enabled {
		wireAckReports(r, api, cfg, db, announcementRepo, receiptRepo, logr)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func wireAckReports(r *gin.Engine, api *gin.RouterGroup, cfg *config.Config, db *sqlx.DB, announcementRepo *repository.AnnouncementRepository, receiptRepo *repository.ReceiptRepository, logr *zap.Logger) {
	files, err := storage.NewLocalStorage(cfg.AckReports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init ack report storage", "error", err)
	}

	ackRepo := repository.NewAckReportRepository(db)
	signer := storage.NewSignedURLSigner(cfg.AckReports.SignedURLSecret, cfg.AckReports.SignedURLTTL)
	exporter := service.NewExportService(files)

	var ackReportService *service.AckReportService
	queue := jobs.NewQueue("ack-reports", func(ctx context.Context, job jobs.Job) error {
		return ackReportService.Process(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.AckReports.WorkerConcurrency,
		MaxRetries: cfg.AckReports.WorkerRetries,
		Logger:     logr,
	})
	ackReportService = service.NewAckReportService(ackRepo, announcementRepo, receiptRepo, queue, exporter, signer, files, logr, service.AckReportServiceConfig{
		ResultTTL:       cfg.AckReports.SignedURLTTL,
		CleanupInterval: cfg.AckReports.CleanupInterval,
		DownloadBaseURL: cfg.APIPrefix + "/ack-reports",
	})

	ctx := context.Background()
	queue.Start(ctx)
	ackReportService.StartCleanup(ctx)
	if err := ackReportService.RecoverQueued(ctx); err != nil {
		logr.Sugar().Warnw("failed to recover queued ack report jobs", "error", err)
	}

	ackHandler := handler.NewAckReportHandler(ackReportService)
	api.POST("/announcements/:id/ack-report", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), ackHandler.Create)
	api.GET("/ack-reports/:id", ackHandler.Status)

	// Download is token-authenticated; the signed URL is the credential.
	r.GET(cfg.APIPrefix+"/ack-reports/:id/download", ackHandler.Download)
}
