//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_booking/internal/adapters/dataset"
	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/inventory"
	"hotel_booking/internal/payment"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

// ---------- helpers ----------

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations", "mysql")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=booking",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/booking?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func writeDatasets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"hotels.csv":        "id,name,city,price,available,spa\nH1,Grand Plaza,Lisbon,120,yes,yes\nH2,Harbour Inn,Porto,80,no,no\nH3,Old Town,Braga,60,yes,no\n",
		"cards.csv":         "number,expiration,holder,cvc\n4111,12/25,Alice,123\n",
		"card_security.csv": "number,password\n4111,pw\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// newAPI plays one API process: it loads its own in-memory view of the store.
func newAPI(t *testing.T, repo *mysqlrepo.Repo) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	inv, err := inventory.Load(ctx, repo)
	if err != nil {
		t.Fatalf("inventory.Load: %v", err)
	}
	catalog, err := repo.LoadPaymentCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadPaymentCatalog: %v", err)
	}
	secrets, err := repo.LoadPaymentSecrets(ctx)
	if err != nil {
		t.Fatalf("LoadPaymentSecrets: %v", err)
	}
	engine := app.NewBookingEngine(inv, payment.NewValidator(catalog), payment.NewAuthenticator(secrets))
	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{S: app.NewBookingService(inv, engine)})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, hotelID string) int {
	t.Helper()
	b, _ := json.Marshal(domain.BookingRequest{
		CustomerName: "Alice",
		HotelID:      hotelID,
		Card:         domain.Card{Number: "4111", Expiration: "12/25", Holder: "Alice", CVC: "123"},
		Password:     "pw",
	})
	res, err := http.Post(url+"/v1/bookings", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Errorf("POST: %v", err)
		return 0
	}
	defer res.Body.Close()
	return res.StatusCode
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BookAcrossProcesses(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	dir := writeDatasets(t)

	// ingest the CSV datasets with hashed secrets
	ing := app.NewIngestionService(dataset.New(10), repo, true)
	hotels, err := ing.Hotels(ctx, filepath.Join(dir, "hotels.csv"))
	if err != nil {
		t.Fatalf("Hotels: %v", err)
	}
	for i, h := range hotels {
		if err := ing.IngestHotel(ctx, i, h); err != nil {
			t.Fatalf("IngestHotel: %v", err)
		}
	}
	if err := ing.IngestCatalog(ctx, filepath.Join(dir, "cards.csv"), filepath.Join(dir, "card_security.csv")); err != nil {
		t.Fatalf("IngestCatalog: %v", err)
	}

	// two API processes share the database
	a := newAPI(t, repo)
	b := newAPI(t, repo)

	res, err := http.Get(a.URL + "/v1/hotels")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var listed []domain.HotelUnit
	_ = json.NewDecoder(res.Body).Decode(&listed)
	res.Body.Close()
	if len(listed) != 2 || listed[0].ID != "H1" || listed[1].ID != "H3" {
		t.Fatalf("unexpected list: %+v", listed)
	}

	// both processes race for H1
	const perProcess = 8
	codes := make([]int, 2*perProcess)
	var wg sync.WaitGroup
	for i := range codes {
		url := a.URL
		if i%2 == 1 {
			url = b.URL
		}
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			codes[i] = post(t, url, "H1")
		}(i, url)
	}
	wg.Wait()

	var created, conflict int
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	if created != 1 || conflict != len(codes)-1 {
		t.Fatalf("created=%d conflict=%d", created, conflict)
	}

	// the loser process converged on the durable state
	for _, ts := range []*httptest.Server{a, b} {
		res, err := http.Get(ts.URL + "/v1/hotels/H1")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		var h domain.HotelUnit
		_ = json.NewDecoder(res.Body).Decode(&h)
		res.Body.Close()
		if h.Available {
			t.Fatalf("%s still lists H1 as available", ts.URL)
		}
	}

	stored, err := repo.LoadHotels(ctx)
	if err != nil {
		t.Fatalf("LoadHotels: %v", err)
	}
	if stored[0].Available {
		t.Fatalf("H1 not booked in the database")
	}
}
