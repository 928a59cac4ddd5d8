// Package storage opens the durable backend selected by STORE_BACKEND.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage/csvfile"
	mysqlrepo "hotel_booking/internal/storage/mysql"
	"hotel_booking/internal/storage/postgres"
	redisstore "hotel_booking/internal/storage/redis"
)

var ErrNotWritable = errors.New("backend cannot be seeded by ingestion")

// Backend is an opened store plus whatever must be closed with it.
type Backend struct {
	Name  string
	Store domain.Store
	close func()
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Writer returns the ingestion side of the backend. The csv backend is its
// own dataset and has no writer.
func (b *Backend) Writer() (domain.DatasetWriter, error) {
	w, ok := b.Store.(domain.DatasetWriter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotWritable, b.Name)
	}
	return w, nil
}

// Open connects to the configured backend. rc is reused for the redis
// backend and may be nil for the others.
func Open(ctx context.Context, cfg shared.Config, rc *redis.Client) (*Backend, error) {
	switch cfg.StoreBackend {
	case shared.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Msg("mysql connection ok")
		return &Backend{Name: cfg.StoreBackend, Store: mysqlrepo.New(db), close: func() { _ = db.Close() }}, nil

	case shared.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		log.Info().Msg("postgres connection ok")
		return &Backend{Name: cfg.StoreBackend, Store: postgres.New(pool), close: pool.Close}, nil

	case shared.BackendRedis:
		if rc == nil {
			return nil, errors.New("redis backend needs a client")
		}
		if err := rc.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &Backend{Name: cfg.StoreBackend, Store: redisstore.New(rc)}, nil

	default:
		log.Info().Str("dir", cfg.DataDir).Msg("using csv datasets")
		return &Backend{Name: shared.BackendCSV, Store: csvfile.New(cfg.DataDir)}, nil
	}
}
