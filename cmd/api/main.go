package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/event-registrations/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/event-registrations/internal/adapters/redis"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/bootstrap"
	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/export"
	httphandler "github.com/robertarktes/event-registrations/internal/http"
	"github.com/robertarktes/event-registrations/internal/idempotency"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/payment"
	"github.com/robertarktes/event-registrations/internal/rateLimit"
	"github.com/robertarktes/event-registrations/internal/registration"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "event-registrations-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open stores: %v", err)
	}
	defer stores.Close()

	deps := httphandler.RouterDeps{Logger: logger}
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		cache := redisadapter.NewCache(redisClient)
		if err := cache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, rate limiter will fail open")
		}
		deps.RateLimiter = rateLimit.NewRateLimiter(cache, cfg.RateLimitPerWindow, cfg.RateLimitWindow, logger)
		deps.Idempotency = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting and Idempotency-Key replay disabled")
	}

	var sink export.Sink
	switch cfg.ExportMode {
	case config.ExportRabbit:
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := rabbit.NewPublisher(conn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		defer pub.Close()
		sink = export.NewRabbitSink(pub)
	case config.ExportFile:
		sink = export.NewFileSink(cfg.ExportFile)
	default:
		logger.Info("spreadsheet export disabled")
	}

	var (
		exporter   registration.Exporter
		dispatcher *export.Dispatcher
	)
	if sink != nil {
		dispatcher = export.NewDispatcher(sink, cfg.ExportQueueSize, cfg.ExportWorkers, logger)
		exporter = dispatcher
	}

	razorpay := payment.NewRazorpayClient(payment.RazorpayConfig{
		BaseURL:   cfg.GatewayBaseURL,
		KeyID:     cfg.GatewayKeyID,
		KeySecret: cfg.GatewayKeySecret,
		Timeout:   cfg.GatewayTimeout,
	})
	instamojo := payment.NewInstamojoClient(payment.InstamojoConfig{
		BaseURL:   cfg.InstamojoBaseURL,
		APIKey:    cfg.InstamojoAPIKey,
		AuthToken: cfg.InstamojoAuthToken,
		Timeout:   cfg.GatewayTimeout,
	})

	regSvc := registration.NewService(registration.Deps{
		Store:           stores.Registrations,
		Orders:          razorpay,
		Hosted:          instamojo,
		Exports:         exporter,
		Audit:           stores.Audit,
		Logger:          logger,
		GatewaySecret:   cfg.GatewayKeySecret,
		FinalizeTimeout: cfg.FinalizeTimeout,
	})
	authSvc := auth.NewService(stores.Users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), logger)
	deps.Auth = authSvc

	handlers := httphandler.NewHandlers(regSvc, authSvc, razorpay.KeyID(), stores.Ready)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httphandler.SetupRouter(handlers, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The dispatcher outlives the server so jobs enqueued by in-flight
	// requests are drained after Shutdown returns.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})
	if dispatcher != nil {
		g.Go(func() error {
			dispatcher.Run(dispatchCtx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
	}
	logger.Info("Server exiting")
}
