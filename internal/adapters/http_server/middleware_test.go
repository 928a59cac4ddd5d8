package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hotel_booking/internal/domain"
)

func TestLogger_RemoteAfterRealIP(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(chimw.RealIP)
	m.Use(Logger(zerolog.New(&buf)))
	m.Get("/", func(w http.ResponseWriter, r *http.Request) {})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	m.ServeHTTP(httptest.NewRecorder(), r)
	if !strings.Contains(buf.String(), `"remote":"10.0.0.9"`) {
		t.Fatalf("RemoteAddr: %s", buf.String())
	}

	buf.Reset()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	m.ServeHTTP(httptest.NewRecorder(), r)
	if !strings.Contains(buf.String(), `"remote":"203.0.113.7"`) {
		t.Fatalf("X-Forwarded-For: %s", buf.String())
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	m := chi.NewRouter()
	m.Use(Logger(l))
	m.Get("/ok", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	m.Get("/conflict/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusConflict) })

	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/conflict/7", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"status":200`) {
		t.Fatalf("unexpected ok line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], `"route":"/conflict/{id}"`) {
		t.Fatalf("unexpected conflict line: %s", lines[1])
	}
}

func TestWriteProblem(t *testing.T) {
	h := httptest.NewRecorder()
	writeProblem(h, http.StatusTooManyRequests, "Too Many Attempts", "x")
	if h.Code != http.StatusTooManyRequests || !strings.Contains(h.Body.String(), `"status":429`) {
		t.Fatalf("problem body: %d %s", h.Code, h.Body.String())
	}
}

func TestLogger_BookingOutcome(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(Logger(zerolog.New(&buf)))
	m.Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
		noteBooking(r.Context(), "k-1", domain.ReservationResult{
			State:         domain.StateAlreadyBooked,
			FailureReason: domain.FailureAlreadyBooked,
			Hotel:         domain.HotelUnit{ID: "H1"},
		})
		w.WriteHeader(http.StatusConflict)
	})
	m.Get("/hotels", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("[]")) })

	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bookings", nil))
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hotels", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	want := `"booking":{"hotel_id":"H1","state":"already_booked","idempotency_key":true,"failure":"already_booked"}`
	if !strings.Contains(lines[0], want) || !strings.Contains(lines[0], `"status":409`) {
		t.Fatalf("booking outcome missing: %s", lines[0])
	}
	if strings.Contains(lines[1], `"booking"`) || !strings.Contains(lines[1], `"bytes":2`) {
		t.Fatalf("unexpected listing line: %s", lines[1])
	}
}

func TestLogger_PanicLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(Logger(zerolog.New(&buf)))
	m.Use(chimw.Recoverer)
	m.Post("/bookings", func(w http.ResponseWriter, r *http.Request) {
		noteBookingState(r.Context(), "", "H1", "reserved", "", "")
		panic("boom")
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"status":500`) || !strings.Contains(out, `"state":"reserved"`) {
		t.Fatalf("panic not logged as error with its booking: %s", out)
	}
}
