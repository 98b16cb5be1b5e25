// Command server runs the EventSphere HTTP API.
//
// @title EventSphere API
// @version 1.0
// @description College event management: events, registrations with seat limits, calendar tickets, notifications, attendance and certificates.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"eventsphere/config"
	_ "eventsphere/docs"
	"eventsphere/internal/adapters/auth"
	"eventsphere/internal/adapters/broker"
	"eventsphere/internal/adapters/email"
	"eventsphere/internal/adapters/push"
	deliveryhttp "eventsphere/internal/delivery/http"
	"eventsphere/internal/delivery/http/controllers"
	"eventsphere/internal/domain"
	"eventsphere/internal/repository/postgres"
	"eventsphere/internal/services"
	"eventsphere/internal/telemetry"
	"eventsphere/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTel.Enabled,
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: "eventsphere",
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to postgres")

	checks := map[string]controllers.Checker{"postgres": db.PingContext}

	var redisClient *redis.Client
	if cfg.Push.RedisURL != "" {
		redisClient, err = push.NewRedisClient(ctx, cfg.Push.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return push.HealthCheck(ctx, redisClient) }
		logger.Info("connected to redis")
	}

	pusher, err := push.NewPusher(push.Config{
		Provider: cfg.Push.Provider,
		PubNub: push.PubNubConfig{
			PublishKey:   cfg.Push.PubNubPublishKey,
			SubscribeKey: cfg.Push.PubNubSubscribeKey,
			SecretKey:    cfg.Push.PubNubSecretKey,
			UserID:       cfg.Push.PubNubUserID,
		},
		Redis: redisClient,
	}, logger)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	var publisher domain.EventPublisher = broker.NoopPublisher{Logger: logger}
	if cfg.Broker.RabbitMQURL != "" {
		p, err := broker.NewPublisher(cfg.Broker.RabbitMQURL, logger)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer p.Close()
		publisher = p
		logger.Info("connected to rabbitmq", "exchange", broker.ExchangeName)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	pool := worker.NewPool(logger, cfg.WorkerCount, cfg.WorkerQueueSize, 2*cfg.ServiceTimeout)

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	certificateRepo := postgres.NewCertificateRepository(db)

	// Services
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	notificationService := services.NewNotificationService(notificationRepo, pusher, pool, logger, cfg.ServiceTimeout)
	eventService := services.NewEventService(eventRepo, registrationRepo, attendanceRepo, userRepo, notificationService, emailService, publisher, pool, logger, cfg.FrontendURL, cfg.ServiceTimeout)
	registrationService := services.NewRegistrationService(eventRepo, registrationRepo, userRepo, notificationService, emailService, publisher, pool, logger, cfg.FrontendURL, cfg.ServiceTimeout)
	attendanceService := services.NewAttendanceService(eventRepo, registrationRepo, attendanceRepo, cfg.ServiceTimeout)
	certificateService := services.NewCertificateService(eventRepo, attendanceRepo, certificateRepo, notificationService, pool, cfg.ServiceTimeout)

	pool.Every("notifications.purge_expired", cfg.NotificationSweepInterval, func(ctx context.Context) error {
		_, err := notificationService.PurgeExpired(ctx)
		return err
	})

	router := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:         logger,
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Events:         controllers.NewEventController(logger, eventService),
		Registrations:  controllers.NewRegistrationController(logger, registrationService),
		Notifications:  controllers.NewNotificationController(logger, notificationService),
		Attendance:     controllers.NewAttendanceController(logger, attendanceService),
		Certificates:   controllers.NewCertificateController(logger, certificateService),
		Health:         controllers.NewHealthController(logger, checks),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("worker pool did not drain", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
