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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/auth"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable generation for class-sections: greedy, backtracking and genetic strategies.
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to in-memory proposals", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logr)
	if cfg.Scheduler.Enabled {
		app.batch.Start(ctx)
		defer app.batch.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router *gin.Engine
	batch  *service.BatchService
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metrics,
		cfg.Scheduler.ProposalTTL,
		logr,
		redisClient != nil,
	)

	classSubjects := repository.NewClassSubjectRepository(db)
	engine := timetable.New(logr)
	timetableSvc := service.NewTimetableService(
		classSubjects,
		repository.NewTimeSlotRepository(db),
		repository.NewScheduleRepository(db),
		repository.NewTeacherPreferenceRepository(db),
		repository.NewSemesterScheduleRepository(db),
		repository.NewSemesterScheduleSlotRepository(db),
		db,
		engine,
		cacheSvc,
		metrics,
		validate,
		logr,
		timetableConfig(cfg.Scheduler),
	)
	batchSvc := service.NewBatchService(timetableSvc, classSubjects, cacheSvc, metrics, validate, logr, service.BatchConfig{
		Workers:     cfg.Scheduler.BatchWorkers,
		Buffer:      cfg.Scheduler.BatchBuffer,
		Retries:     cfg.Scheduler.BatchRetries,
		Concurrency: cfg.Scheduler.BatchConcurrency,
		StatusTTL:   cfg.Scheduler.BatchStatusTTL,
	})

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"redis":    func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
	})
	timetableHandler := handler.NewTimetableHandler(timetableSvc, batchSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(metrics))
	}
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg, routeHandlers{
		timetable: timetableHandler,
		metrics:   metricsHandler,
		verifier:  auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
	})
	return &application{router: r, batch: batchSvc}
}

func timetableConfig(cfg config.SchedulerConfig) service.TimetableConfig {
	return service.TimetableConfig{
		ProposalTTL:      cfg.ProposalTTL,
		DefaultStrategy:  cfg.DefaultStrategy,
		Timeout:          cfg.Timeout,
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		MutationRate:     cfg.MutationRate,
		Seed:             cfg.Seed,
		Days:             cfg.Days,
		PeriodsPerDay:    cfg.PeriodsPerDay,
		BreakPeriods:     cfg.BreakPeriods,
		FillFreePeriods:  cfg.FillFreePeriods,
		FallbackToGreedy: cfg.FallbackToGreedy,
		Limits: timetable.ConstraintLimits{
			MaxConsecutive:  cfg.Limits.MaxConsecutive,
			MaxDailyLoad:    cfg.Limits.MaxDailyLoad,
			MaxSubjectDaily: cfg.Limits.MaxSubjectDaily,
		},
	}
}
