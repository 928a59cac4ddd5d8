package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"hotel_booking/internal/shared"
)

func TestOpen_CSVHasNoWriter(t *testing.T) {
	b, err := Open(context.Background(), shared.Config{StoreBackend: shared.BackendCSV, DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	if _, err := b.Writer(); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	b, err := Open(context.Background(), shared.Config{StoreBackend: shared.BackendRedis}, rc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := b.Writer(); err != nil {
		t.Fatalf("redis backend should be writable: %v", err)
	}

	if _, err := Open(context.Background(), shared.Config{StoreBackend: shared.BackendRedis}, nil); err == nil {
		t.Fatalf("expected error without a client")
	}
}
