package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct{ mux *chi.Mux }

// New builds the router. requestTimeout bounds every handler, including the
// durable write behind a booking.
func New(requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	m := chi.NewRouter()

	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(Timeout(requestTimeout))
	// outside Recoverer so a panic is logged and counted as a 500
	m.Use(Logger(log.Logger))
	m.Use(Metrics)
	m.Use(chimw.Recoverer)

	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
