package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set
	)
	BookingOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "outcomes_total", Help: "Booking transactions by terminal state."},
		[]string{"state"},
	)
	PersistLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking", Name: "persist_duration_seconds",
			Help:    "Durable write duration inside the booking critical section.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"}, // outcome: ok|conflict|error
	)
)

// Serve exposes reg on its own listener; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		BookingOutcomes, PersistLatency)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveBooking(state string) {
	BookingOutcomes.WithLabelValues(state).Inc()
}

func ObservePersist(outcome string, dur time.Duration) {
	PersistLatency.WithLabelValues(outcome).Observe(dur.Seconds())
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
