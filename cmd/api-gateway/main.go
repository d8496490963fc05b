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
	"go.uber.org/zap"

	_ "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/api/swagger"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/app"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/handler"
	internalmiddleware "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/middleware"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/gateway"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/jobs"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/logger"
	corsmiddleware "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/middleware/requestid"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/storage"
)

// @title ISMIS API
// @version 0.2.0
// @description Student information system: course catalog, grades, payments and notifications.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open document store", zap.Error(err))
	}
	defer stores.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{"store": stores.Ping}

	cache := app.OpenCache(cfg, metrics, logr)
	defer cache.Close() //nolint:errcheck
	if cache.Ping != nil {
		checks["cache"] = cache.Ping
	}
	cacheSvc := cache.Service

	validate := validator.New()
	ledger := billing.Ledger{MaxPayment: cfg.Payments.MaxAmount}

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		Logger:     logr,
	})

	files, err := storage.NewLocalStorage(cfg.Transcripts.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare transcript storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Transcripts.SignedURLSecret, cfg.Transcripts.SignedURLTTL)

	courseSvc := service.NewCourseService(stores.Courses, cacheSvc, metrics, validate, logr)
	studentSvc := service.NewStudentService(stores.Students, ledger, cacheSvc, metrics, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(stores.Students, courseSvc, ledger, cacheSvc, metrics, logr)
	gradeSvc := service.NewGradeService(stores.Students, cacheSvc, metrics, logr)
	paymentSvc := service.NewPaymentService(stores.Students, ledger, gateway.NewClient(cfg.Gateway, logr), cfg.Payments.Currency, cacheSvc, metrics, logr)
	notificationSvc := service.NewNotificationService(stores.Students, ledger, queue, cacheSvc, metrics, logr)
	transcriptSvc := service.NewTranscriptService(stores.Students, files, signer, cfg.Payments.Currency, cfg.APIPrefix, metrics, logr)

	queue.Start(ctx)
	defer queue.Stop()
	go sweepTranscripts(ctx, files, cfg.Transcripts.SignedURLTTL, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Courses:       handler.NewCourseHandler(courseSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Payments:      handler.NewPaymentHandler(paymentSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Transcripts:   handler.NewTranscriptHandler(transcriptSvc),
		Metrics:       metricsHandler,
	}, internalmiddleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store", stores.Driver),
			zap.Bool("cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// sweepTranscripts removes rendered transcripts once every link to them has expired.
func sweepTranscripts(ctx context.Context, files *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := files.CleanupOlderThan(ttl)
			if err != nil {
				logr.Warn("transcript cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired transcripts removed", zap.Int("count", len(removed)))
			}
		}
	}
}
