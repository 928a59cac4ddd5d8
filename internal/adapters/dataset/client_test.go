package dataset_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"hotel_booking/internal/adapters/dataset"
)

const hotelsCSV = `id,name,city,price,available
134,Hotel Adlon,Berlin,250.5,yes
188,Ritz,Paris,400,no
`

func TestClient_Hotels_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_, _ = w.Write([]byte(hotelsCSV))
		}
	}))
	defer ts.Close()

	cl := dataset.New(100) // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.Hotels(ctx, ts.URL+"/hotels.csv")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[0].ID != "134" || got[0].Price != 250.5 || !got[0].Available || got[1].Available {
		t.Fatalf("unexpected hotels: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := dataset.New(100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cl.Hotels(ctx, ts.URL+"/hotels.csv")
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.csv")
	if err := os.WriteFile(path, []byte("number,expiration,cvc,holder\n1234,12/26,123,JOHN SMITH\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cl := dataset.New(0)
	cards, err := cl.Instruments(context.Background(), path)
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}
	if len(cards) != 1 || cards[0].Holder != "JOHN SMITH" || cards[0].CVC != "123" {
		t.Fatalf("unexpected cards: %+v", cards)
	}

	if _, err := cl.Secrets(context.Background(), filepath.Join(dir, "missing.csv")); !errors.Is(err, dataset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing file, got %v", err)
	}
}
