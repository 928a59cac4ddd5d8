package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/adapters/rabbitmq"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/inventory"
	"hotel_booking/internal/payment"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// redis backs the idempotency cache and, optionally, the store
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	defer rc.Close()

	backend, err := storage.Open(ctx, cfg, rc)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("open store failed")
	}
	defer backend.Close()

	inv, err := inventory.Load(ctx, backend.Store, inventory.WithPersistTimeout(cfg.PersistTimeout))
	if err != nil {
		log.Fatal().Err(err).Msg("load hotels failed")
	}
	catalog, err := backend.Store.LoadPaymentCatalog(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load card catalog failed")
	}
	secrets, err := backend.Store.LoadPaymentSecrets(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Fatal().Err(err).Msg("load card secrets failed")
		}
		log.Warn().Msg("no card secrets on file; every authentication will fail")
	}
	log.Info().
		Str("backend", backend.Name).
		Int("available", len(inv.ListAvailable())).
		Int("cards", len(catalog)).
		Int("secrets", len(secrets)).
		Msg("booking data loaded")

	engine := app.NewBookingEngine(inv, payment.NewValidator(catalog), payment.NewAuthenticator(secrets))

	opts := []app.ServiceOption{
		app.WithThrottle(payment.NewThrottle(cfg.AuthFailLimit, cfg.AuthFailWindow)),
		app.WithFingerprintKey([]byte(cfg.IdempotencySecret)),
	}
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; idempotency keys are ignored")
	} else {
		opts = append(opts, app.WithIdempotencyCache(redisad.New(rc), cfg.IdempotencyTTL))
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := rabbitmq.SetupConn(cfg.AMQPURL, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq setup failed")
		}
		defer conn.Close()
		defer ch.Close()
		opts = append(opts, app.WithEvents(rabbitmq.NewPublisher(ch)))
	}
	svc := app.NewBookingService(inv, engine, opts...)

	// http
	srv := server.New(cfg.PersistTimeout + 10*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: svc})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
