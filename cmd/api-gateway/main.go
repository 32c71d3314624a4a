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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/tutor-booking-api/api/swagger"
	"github.com/noah-isme/tutor-booking-api/internal/handler"
	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/internal/repository"
	"github.com/noah-isme/tutor-booking-api/internal/service"
	"github.com/noah-isme/tutor-booking-api/pkg/cache"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-booking-api/pkg/middleware/requestid"
)

// @title Tutor Booking API
// @version 1.0.0
// @description Tutor marketplace booking, availability and session lifecycle
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	validate := service.NewValidator()
	loc := cfg.Booking.Location()
	clock := service.Clock(service.SystemClock)

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.StatsTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	tutorRepo := repository.NewTutorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	notificationSvc := service.NewNotificationService(notificationRepo, metricsSvc, clock, logr)
	retryQueue := jobs.NewQueue[models.Notification]("notifications", notificationSvc.HandleRetry, jobs.QueueConfig{
		Workers:    cfg.Notifications.RetryWorkers,
		MaxRetries: cfg.Notifications.RetryMax,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	retryQueue.OnGiveUp(notificationSvc.Abandon)
	retryQueue.Start(context.Background())
	defer retryQueue.Stop()
	notificationSvc.UseRetryQueue(retryQueue)

	authSvc := service.NewAuthService(cfg.JWT, logr)
	tutorSvc := service.NewTutorService(service.TutorServiceParams{
		Tutors:    tutorRepo,
		Sessions:  sessionRepo,
		Wishlists: wishlistRepo,
		Notifier:  notificationSvc,
		Cache:     cacheSvc,
		Validator: validate,
		Logger:    logr,
		Clock:     clock,
		Location:  loc,
	})
	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Tutors:      tutorRepo,
		Sessions:    sessionRepo,
		Notifier:    notificationSvc,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
		Clock:       clock,
		Location:    loc,
		Granularity: cfg.Booking.SlotGranularity,
	})
	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Sessions:  sessionRepo,
		Notifier:  notificationSvc,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	earningsSvc := service.NewEarningsService(tutorRepo, sessionRepo, cacheSvc, cfg.Cache.EarningsTTL, clock, loc, logr)
	reviewSvc := service.NewReviewService(reviewRepo, sessionRepo, notificationSvc, validate, logr)
	wishlistSvc := service.NewWishlistService(wishlistRepo, tutorSvc, validate, logr)
	reportSvc := service.NewReportService(reportRepo, cacheSvc, cfg.Cache.StatsTTL, clock, logr)
	userSvc := service.NewUserService(userRepo, cacheSvc, validate, logr)

	readiness := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}
	if redisClient != nil {
		readiness["redis"] = cacheRepo
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.Router{
		Tutors:         handler.NewTutorHandler(tutorSvc, bookingSvc),
		Sessions:       handler.NewSessionHandler(bookingSvc, sessionSvc),
		Earnings:       handler.NewEarningsHandler(earningsSvc),
		Notifications:  handler.NewNotificationHandler(notificationSvc),
		Reviews:        handler.NewReviewHandler(reviewSvc),
		Wishlist:       handler.NewWishlistHandler(wishlistSvc),
		Admin:          handler.NewAdminHandler(tutorSvc, reportSvc, userSvc),
		Metrics:        handler.NewMetricsHandler(metricsSvc, readiness),
		Tokens:         authSvc,
		Audit:          auditRepo,
		BookingLimiter: middleware.NewRateLimiter(cfg.Booking.RateLimitPerMinute, cfg.Booking.RateLimitBurst, logr),
		Logger:         logr,
		Location:       loc,
	}.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", loc.String())
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
