package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/adapters/dataset"
	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogFile)

	log.Info().
		Str("backend", cfg.StoreBackend).
		Str("hotels", cfg.HotelsSrc).
		Int("workers", cfg.Workers).
		Msg("ingestor starting")

	var rc *redis.Client
	if cfg.StoreBackend == shared.BackendRedis {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
		defer rc.Close()
	}
	backend, err := storage.Open(ctx, cfg, rc)
	if err != nil {
		log.Fatal().Err(err).Msg("open store failed")
	}
	defer backend.Close()

	writer, err := backend.Writer()
	if err != nil {
		log.Fatal().Err(err).Msg("choose mysql, postgres or redis as STORE_BACKEND")
	}

	ing := app.NewIngestionService(dataset.New(cfg.DatasetRPS), writer, cfg.HashSecrets)

	hotels, err := ing.Hotels(ctx, cfg.HotelsSrc)
	if err != nil {
		log.Fatal().Err(err).Msg("read hotels failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for i, h := range hotels {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(position int, h domain.HotelUnit) {
			defer wg.Done()
			defer sem.Release(1)

			if err := ing.IngestHotel(ctx, position, h); err != nil {
				failed.Add(1)
				log.Warn().Str("id", h.ID).Err(err).Msg("ingest failed")
				return
			}
			log.Debug().Str("id", h.ID).Msg("ingest ok")
		}(i, h)
	}
	wg.Wait()

	if err := ing.IngestCatalog(ctx, cfg.CardsSrc, cfg.SecretsSrc); err != nil {
		log.Fatal().Err(err).Msg("ingest card catalog failed")
	}

	if n := failed.Load(); n > 0 {
		log.Fatal().Int64("failed", n).Int("hotels", len(hotels)).Msg("ingestion incomplete")
	}
	log.Info().Int("hotels", len(hotels)).Msg("ingestion completed")
}
