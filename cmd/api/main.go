package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/qr-attendance-api/api/swagger"
	"github.com/noah-isme/qr-attendance-api/internal/handler"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	"github.com/noah-isme/qr-attendance-api/pkg/cache"
	"github.com/noah-isme/qr-attendance-api/pkg/clock"
	"github.com/noah-isme/qr-attendance-api/pkg/config"
	"github.com/noah-isme/qr-attendance-api/pkg/database"
	"github.com/noah-isme/qr-attendance-api/pkg/jobs"
	"github.com/noah-isme/qr-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/qr-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/qr-attendance-api/pkg/middleware/requestid"
	"github.com/noah-isme/qr-attendance-api/pkg/qrpayload"
)

// @title QR Attendance API
// @version 1.0.0
// @description Rotating QR code attendance for lecture sessions
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logr.Info("schema applied")
	}

	metrics := service.NewMetricsService()
	systemClock := clock.System{}
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(nil)
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("stats cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	invalidator := service.NewStatsInvalidator(cacheSvc, jobs.QueueConfig{
		Workers:    cfg.Stats.CacheWorkers,
		MaxRetries: 2,
		Logger:     logr,
	})
	invalidator.Start(ctx)
	defer invalidator.Stop()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	sessions := repository.NewSessionRepository(db)
	records := repository.NewAttendanceRecordRepository(db)
	stats := repository.NewStatsRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		RefreshTokenExpiry:  cfg.JWT.RefreshExpiration,
		Issuer:              cfg.JWT.Issuer,
		StudentSingleDevice: cfg.JWT.StudentSingleDevice,
		Clock:               systemClock,
	})
	payloadSvc := service.NewPayloadService(users, systemClock, cfg.Attendance.FreshnessWindow, cfg.Attendance.RefreshInterval, logr)
	courseSvc := service.NewCourseService(courses, users, validate, logr, systemClock)
	sessionSvc := service.NewSessionService(sessions, records, courses, users,
		qrpayload.NewValidator(cfg.Attendance.FreshnessWindow, systemClock), validate, logr,
		service.SessionServiceConfig{Clock: systemClock, Metrics: metrics, Invalidator: invalidator})
	statsSvc := service.NewStatsService(stats, cacheSvc, cfg.Stats.CacheTTL, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, handler.RouterConfig{
		Prefix:         cfg.APIPrefix,
		RequestTimeout: cfg.RequestTimeout,
		Tokens:         authSvc,
		Audit:          users,
		Metrics:        metrics,
		Logger:         logr,
		Auth:           handler.NewAuthHandler(authSvc),
		Payload:        handler.NewPayloadHandler(payloadSvc),
		Courses:        handler.NewCourseHandler(courseSvc),
		Sessions:       handler.NewSessionHandler(sessionSvc),
		Stats:          handler.NewStatsHandler(statsSvc),
		Observe:        handler.NewMetricsHandler(metrics, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
