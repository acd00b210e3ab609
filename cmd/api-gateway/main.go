package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/guardian-portal-api/api/swagger"
	"github.com/noah-isme/guardian-portal-api/internal/handler"
	"github.com/noah-isme/guardian-portal-api/internal/middleware"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	"github.com/noah-isme/guardian-portal-api/internal/repository"
	"github.com/noah-isme/guardian-portal-api/internal/service"
	"github.com/noah-isme/guardian-portal-api/internal/upstream"
	"github.com/noah-isme/guardian-portal-api/pkg/cache"
	"github.com/noah-isme/guardian-portal-api/pkg/config"
	"github.com/noah-isme/guardian-portal-api/pkg/database"
	"github.com/noah-isme/guardian-portal-api/pkg/jobs"
	"github.com/noah-isme/guardian-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/guardian-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/guardian-portal-api/pkg/middleware/requestid"
)

// @title Guardian Portal API
// @version 1.0.0
// @description Tenant-scoped aggregation cache over the school registrar
// @BasePath /api/v1
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

	metrics := service.NewMetricsService()

	// A missing Redis degrades caching to a no-op: every request falls
	// through to the registrar.
	var cacheRepo service.CacheRepository
	cacheEnabled := false
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheEnabled = true
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.CacheTTL.Bulk, logr, cacheEnabled)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	tenantRepo := repository.NewTenantRepository(db)

	registrar := upstream.NewClient(cfg.Upstream, metrics, logr)
	bulkSvc := service.NewBulkService(registrar, cacheSvc, cfg.CacheTTL.Bulk, logr)
	fanout := service.NewInvoiceFanout(registrar, cacheSvc, metrics, cfg.Upstream.FanoutWorkers, cfg.CacheTTL.Invoices, logr)
	guardianSvc := service.NewGuardianService(service.GuardianServiceParams{
		Bulk:   bulkSvc,
		Fanout: fanout,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.GuardianServiceConfig{
			ListTTL:         cfg.CacheTTL.ProcessedList,
			DetailTTL:       cfg.CacheTTL.GuardianDetail,
			StatsTTL:        cfg.CacheTTL.Search,
			DefaultPageSize: cfg.Pagination.DefaultPageSize,
			MaxPageSize:     cfg.Pagination.MaxPageSize,
		},
	})
	authSvc := service.NewAuthService(tenantRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	guardianHandler := handler.NewGuardianHandler(guardianSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, cacheSvc)

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		exportSvc := service.NewExportService(guardianSvc, logr)
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.Tenant(authSvc, tenantRepo, logr))
	protected.GET("/auth/me", authHandler.Me)
	protected.GET("/guardians", guardianHandler.List)
	protected.GET("/guardians/stats", guardianHandler.Stats)
	protected.GET("/guardians/:id", guardianHandler.Detail)
	protected.POST("/guardians/cache/invalidate",
		middleware.RequireRoles("admin", "coordinator"),
		middleware.Audit(logr, "invalidate", "guardian_cache"),
		guardianHandler.Invalidate)
	if exportHandler != nil {
		protected.GET("/guardians/export/delinquency",
			middleware.RequireRoles("admin", "finance"),
			exportHandler.Delinquency)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Refresh.Enabled {
		refresher := jobs.NewRefresher(tenantRepo, func(ctx context.Context, schoolID string) error {
			school, err := tenantRepo.FindSchoolByID(ctx, schoolID)
			if err != nil {
				return err
			}
			return guardianSvc.Refresh(ctx, models.Tenant{ID: school.ID, UpstreamToken: school.UpstreamToken})
		}, jobs.RefresherConfig{Interval: cfg.Refresh.Interval, Logger: logr})
		refresher.Start(rootCtx)
		defer refresher.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache_enabled", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
