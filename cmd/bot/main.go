package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ifsp-pirituba/almoco-bot/internal/api/router"
	"github.com/ifsp-pirituba/almoco-bot/internal/assistant"
	"github.com/ifsp-pirituba/almoco-bot/internal/cancel"
	appconfig "github.com/ifsp-pirituba/almoco-bot/internal/config"
	"github.com/ifsp-pirituba/almoco-bot/internal/conversation"
	"github.com/ifsp-pirituba/almoco-bot/internal/http/handlers"
	"github.com/ifsp-pirituba/almoco-bot/internal/notify"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
	"github.com/ifsp-pirituba/almoco-bot/pkg/logging"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting almoco-bot",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("invalid DATABASE_URL", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DatabaseMaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	studentsRepo := students.NewPostgresRepository(pool)
	ordersRepo := orders.NewPostgresRepository(pool)

	states, err := buildStateStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize state store", "error", err)
		os.Exit(1)
	}

	botMetrics := metrics.NewBotMetrics(nil)

	sender := buildEmailSender(ctx, cfg, logger)
	cancelSvc := cancel.NewService(ordersRepo, sender, cfg.StaffEmail, botMetrics, logger.WithComponent("cancel"))

	var opts []conversation.Option
	if cfg.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to initialize gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()

		limiter := assistant.NewUsageLimiter(cfg.AssistantUserQuota, cfg.AssistantGlobalQuota, nil)
		opts = append(opts, conversation.WithClassifier(
			assistant.NewClassifier(gemini, limiter, logger.WithComponent("assistant"))))
		logger.Info("assistant fallback enabled", "model", cfg.GeminiModelID)
	}

	opts = append(opts, conversation.WithMetrics(botMetrics))
	conv := conversation.NewHandler(studentsRepo, ordersRepo, cancelSvc, states, loc,
		logger.WithComponent("conversation"), opts...)

	webhook := handlers.NewWebhookHandler(conv, botMetrics, logger.WithComponent("webhook"))

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildStateStore(cfg *appconfig.Config, logger *logging.Logger) (conversation.StateStore, error) {
	if cfg.StateBackend == "redis" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		logger.Info("using redis state store", "addr", cfg.RedisAddr)
		return conversation.NewRedisStateStore(redis.NewClient(redisOptions)), nil
	}
	logger.Info("using file state store", "dir", cfg.DataDir)
	return conversation.NewFileStateStore(cfg.DataDir)
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger.WithComponent("notify")); sender != nil {
			logger.Info("using sendgrid email sender")
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("failed to load aws config, falling back to stub sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger.WithComponent("notify")); sender != nil {
			logger.Info("using ses email sender", "region", cfg.AWSRegion)
			return sender
		}
	}
	return notify.NewStubEmailSender(logger.WithComponent("notify"))
}
