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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/alumnos-crm-api/api/swagger"
	"github.com/noah-isme/alumnos-crm-api/internal/handler"
	internalmiddleware "github.com/noah-isme/alumnos-crm-api/internal/middleware"
	"github.com/noah-isme/alumnos-crm-api/internal/repository"
	"github.com/noah-isme/alumnos-crm-api/internal/service"
	"github.com/noah-isme/alumnos-crm-api/pkg/cache"
	"github.com/noah-isme/alumnos-crm-api/pkg/config"
	"github.com/noah-isme/alumnos-crm-api/pkg/contacts"
	"github.com/noah-isme/alumnos-crm-api/pkg/database"
	"github.com/noah-isme/alumnos-crm-api/pkg/events"
	"github.com/noah-isme/alumnos-crm-api/pkg/jobs"
	"github.com/noah-isme/alumnos-crm-api/pkg/logger"
	"github.com/noah-isme/alumnos-crm-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/alumnos-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/alumnos-crm-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title Alumnos CRM API
// @version 1.0.0
// @description Student follow-up CRM: magic link weekly reports, status tracking and batch dispatch.
// @BasePath /api/v1
// @schemes http https

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	sender, err := mail.NewSender(cfg.Mail, logr)
	if err != nil {
		return fmt.Errorf("mail sender: %w", err)
	}

	publisher, err := events.New(cfg.Events, logr)
	if err != nil {
		return err
	}
	defer publisher.Close()

	metrics := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	linkRepo := repository.NewMagicLinkRepository(db)
	reportRepo := repository.NewWeeklyReportRepository(db)
	configRepo := repository.NewSystemConfigRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	var cacheSvc *service.CacheService
	var results *service.JobResultStore
	var guard service.RunGuard
	if cacheRepo.Enabled() {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Redis.CacheTTL, logr, true)
		results = service.NewJobResultStore(cacheRepo, cfg.Jobs.ResultTTL, logr)
		guard = service.NewRedisRunGuard(cacheRepo)
	} else {
		results = service.NewJobResultStore(nil, cfg.Jobs.ResultTTL, logr)
		guard = service.NewMemoryRunGuard()
	}

	configSvc := service.NewConfigurationService(configRepo, cacheSvc, nil, logr)
	statusSvc := service.NewStatusService(studentRepo, reportRepo, configSvc, metrics, publisher, logr)
	linkSvc := service.NewMagicLinkService(studentRepo, linkRepo, configSvc, sender, service.UUIDTokenGenerator{}, metrics, publisher, logr, service.MagicLinkServiceConfig{
		FrontendBaseURL: cfg.Frontend.BaseURL,
		SendTimeout:     cfg.Mail.Timeout,
	})
	dispatchSvc := service.NewDispatchService(studentRepo, linkSvc, configSvc, logr, service.DispatchServiceConfig{
		Delay:    cfg.Scheduler.DispatchDelay,
		Location: location,
	})
	reportSvc := service.NewWeeklyReportService(linkSvc, reportRepo, studentRepo, statusSvc, metrics, publisher, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, reportRepo, linkRepo, statusSvc, nil, logr)
	auditSvc := service.NewAuditService(linkRepo, reportRepo, studentRepo, logr)
	syncSvc := service.NewContactSyncService(contacts.NewClient(cfg.Contacts), studentRepo, logr, service.ContactSyncConfig{
		StudentTag:        cfg.Contacts.StudentTag,
		InactiveTagMarker: cfg.Contacts.InactiveTagMarker,
	})

	runner := service.NewJobRunner(dispatchSvc, statusSvc, syncSvc, results, metrics, publisher, logr)

	queue := jobs.NewQueue("batch", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})
	jobSvc := service.NewJobService(queue, runner, results, logr)
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Scheduler.Enabled {
		scheduler := service.NewScheduler(runner, configSvc, guard, logr, service.SchedulerConfig{
			TickInterval: cfg.Scheduler.TickInterval,
			ScanTime:     cfg.Scheduler.ScanTime,
			Location:     location,
		})
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	router := newRouter(cfg, logr, metrics, handler.Handlers{
		MagicLinks:    handler.NewMagicLinkHandler(linkSvc),
		WeeklyReports: handler.NewWeeklyReportHandler(reportSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Configuration: handler.NewConfigurationHandler(configSvc),
		Audit:         handler.NewAuditHandler(auditSvc),
		Jobs:          handler.NewJobHandler(jobSvc),
	}, readinessChecks(db, redisClient))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, handlers handler.Handlers, checks map[string]handler.ReadinessCheck) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterOps(r, handler.NewMetricsHandler(metrics, checks))
	handler.Register(r.Group(cfg.APIPrefix), handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
