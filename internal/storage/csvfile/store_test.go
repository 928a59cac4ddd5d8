package csvfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/csvfile"
)

const hotelsCSV = `id,name,city,price,available,spa
H1,Grand Plaza,Lisbon,120.5,yes,yes
H2,Harbour Inn,Porto,80,no,no
H3,"Old Town, Centre",Braga,60,yes,no
`

func writeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		csvfile.HotelsFile:  hotelsCSV,
		csvfile.CardsFile:   "number,expiration,holder,cvc\n4111,12/25,Alice,123\n",
		csvfile.SecretsFile: "number,password\n4111,pw\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestStore_Loads(t *testing.T) {
	s := csvfile.New(writeDir(t))
	ctx := context.Background()

	hotels, err := s.LoadHotels(ctx)
	if err != nil {
		t.Fatalf("LoadHotels: %v", err)
	}
	if len(hotels) != 3 || hotels[2].Name != "Old Town, Centre" || hotels[1].Available {
		t.Fatalf("unexpected hotels: %+v", hotels)
	}
	cards, err := s.LoadPaymentCatalog(ctx)
	if err != nil || len(cards) != 1 || cards[0].Holder != "Alice" {
		t.Fatalf("LoadPaymentCatalog: %+v %v", cards, err)
	}
	secrets, err := s.LoadPaymentSecrets(ctx)
	if err != nil || secrets["4111"] != "pw" {
		t.Fatalf("LoadPaymentSecrets: %+v %v", secrets, err)
	}
}

func TestStore_MissingFile(t *testing.T) {
	s := csvfile.New(t.TempDir())
	if _, err := s.LoadHotels(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PersistHotel_BooksOnce(t *testing.T) {
	dir := writeDir(t)
	s := csvfile.New(dir)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.PersistHotel(ctx, domain.HotelUnit{ID: "H1"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, e := range errs {
		switch {
		case e == nil:
			ok++
		case errors.Is(e, domain.ErrAlreadyBooked):
		default:
			t.Fatalf("PersistHotel: %v", e)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one booking, got %d", ok)
	}

	b, _ := os.ReadFile(filepath.Join(dir, csvfile.HotelsFile))
	if !strings.Contains(string(b), "H1,Grand Plaza,Lisbon,120.5,no,yes") {
		t.Fatalf("row not rewritten:\n%s", b)
	}
	if !strings.Contains(string(b), `H3,"Old Town, Centre",Braga,60,yes,no`) {
		t.Fatalf("other rows changed:\n%s", b)
	}

	// a fresh reader sees the booking
	hotels, _ := csvfile.New(dir).LoadHotels(ctx)
	if hotels[0].Available {
		t.Fatalf("booking not durable")
	}
}

func TestStore_PersistHotel_Errors(t *testing.T) {
	s := csvfile.New(writeDir(t))
	ctx := context.Background()

	if err := s.PersistHotel(ctx, domain.HotelUnit{ID: "H2"}); !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}
	if err := s.PersistHotel(ctx, domain.HotelUnit{ID: "H9"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.PersistHotel(cancelled, domain.HotelUnit{ID: "H1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStore_PersistHotel_RejectsAvailable(t *testing.T) {
	dir := writeDir(t)
	before, err := os.ReadFile(filepath.Join(dir, csvfile.HotelsFile))
	if err != nil {
		t.Fatal(err)
	}
	s := csvfile.New(dir)
	ctx := context.Background()

	for _, id := range []string{"H1", "H2"} {
		err := s.PersistHotel(ctx, domain.HotelUnit{ID: id, Name: "Harbour", City: "Porto", Price: 95, Available: true})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", id, err)
		}
	}
	after, _ := os.ReadFile(filepath.Join(dir, csvfile.HotelsFile))
	if string(after) != string(before) {
		t.Fatalf("rejected write touched %s", csvfile.HotelsFile)
	}
}
