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

	_ "github.com/ieab-app/escala-api/api/swagger"
	"github.com/ieab-app/escala-api/internal/handler"
	"github.com/ieab-app/escala-api/internal/middleware"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/internal/repository"
	"github.com/ieab-app/escala-api/internal/service"
	"github.com/ieab-app/escala-api/pkg/cache"
	"github.com/ieab-app/escala-api/pkg/config"
	"github.com/ieab-app/escala-api/pkg/database"
	"github.com/ieab-app/escala-api/pkg/logger"
	corsmiddleware "github.com/ieab-app/escala-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ieab-app/escala-api/pkg/middleware/requestid"
)

// @title Escala API
// @version 1.0.0
// @description Volunteer scheduling API for the IEAB children's ministry
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The roster works without Redis; reads just skip the cache.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	volunteerRepo := repository.NewVolunteerRepository(db)
	eventRepo := repository.NewEventRepository(db)
	unavailabilityRepo := repository.NewUnavailabilityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	pairRepo := repository.NewPairHistoryRepository(db)

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Roster.CacheTTL, logr, cfg.Roster.CacheEnabled)
	}

	authService := service.NewAuthService(volunteerRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	volunteerService := service.NewVolunteerService(volunteerRepo, validate, logr)
	unavailabilityService := service.NewUnavailabilityService(unavailabilityRepo, eventRepo, validate, logr)
	calendarService, err := service.NewCalendarService(eventRepo, cfg.Scheduler, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid scheduler config", "error", err)
	}
	scheduleService := service.NewScheduleService(eventRepo, scheduleRepo, cacheService, validate, logr)
	rosterService := service.NewRosterService(
		calendarService,
		volunteerRepo,
		unavailabilityRepo,
		scheduleRepo,
		pairRepo,
		db,
		scheduleService,
		metricsService,
		cfg.Scheduler,
		validate,
		logr,
	)
	substitutionService := service.NewSubstitutionService(scheduleRepo, volunteerRepo, unavailabilityRepo, pairRepo, scheduleService, cfg.Scheduler, validate, logr)
	exportService := service.NewExportService(scheduleService, eventRepo, cfg.Export.Title, cfg.Export.Enabled, logr)

	authHandler := handler.NewAuthHandler(authService, volunteerService)
	volunteerHandler := handler.NewVolunteerHandler(volunteerService)
	unavailabilityHandler := handler.NewUnavailabilityHandler(unavailabilityService)
	rosterHandler := handler.NewRosterHandler(rosterService, scheduleService, substitutionService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.PUT("/auth/pin", authHandler.ChangePIN)

		authed.GET("/roster", rosterHandler.MonthView)
		authed.GET("/unavailabilities", unavailabilityHandler.ListMine)
		authed.POST("/unavailabilities", unavailabilityHandler.Declare)
		authed.DELETE("/unavailabilities/:id", unavailabilityHandler.Remove)

		authed.GET("/exports/pdf", exportHandler.PDF)
		authed.GET("/exports/whatsapp", exportHandler.WhatsApp)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/volunteers", volunteerHandler.List)
		admin.POST("/volunteers", volunteerHandler.Create)
		admin.GET("/volunteers/:id", volunteerHandler.Get)
		admin.PUT("/volunteers/:id", volunteerHandler.Update)
		admin.PUT("/volunteers/:id/pin", volunteerHandler.ResetPIN)
		admin.DELETE("/volunteers/:id", volunteerHandler.Delete)

		admin.POST("/roster/events", rosterHandler.EnsureEvents)
		admin.POST("/roster/generate", rosterHandler.Generate)
		admin.POST("/roster/publish", rosterHandler.Publish)
		admin.GET("/schedules/:id/substitutes", rosterHandler.ListSubstitutes)
		admin.PUT("/schedules/:id/swap", rosterHandler.Swap)

		admin.GET("/metrics/system", metricsHandler.System)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
