package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// ---- booking outcome ----

// outcome is filled in by the booking handler and read by Logger once the
// response is written.
type outcome struct {
	set       bool
	hotelID   string
	state     string
	failure   string
	reference string
	replayKey bool
}

type outcomeKey struct{}

func withOutcome(ctx context.Context) (context.Context, *outcome) {
	o := &outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

// noteBooking records a finished booking transaction for the request log.
func noteBooking(ctx context.Context, idempotencyKey string, res domain.ReservationResult) {
	noteBookingState(ctx, idempotencyKey, res.Hotel.ID, string(res.State), string(res.FailureReason), res.Reference)
}

// noteBookingState records a booking that ended before a result existed,
// e.g. "throttled" or "idempotency_conflict".
func noteBookingState(ctx context.Context, idempotencyKey, hotelID, state, failure, reference string) {
	o, ok := ctx.Value(outcomeKey{}).(*outcome)
	if !ok {
		return
	}
	o.set = true
	o.hotelID = hotelID
	o.state = state
	o.failure = failure
	o.reference = reference
	o.replayKey = idempotencyKey != ""
}

func (o *outcome) dict() (*zerolog.Event, bool) {
	if !o.set {
		return nil, false
	}
	d := zerolog.Dict().
		Str("hotel_id", o.hotelID).
		Str("state", o.state).
		Bool("idempotency_key", o.replayKey)
	if o.failure != "" {
		d = d.Str("failure", o.failure)
	}
	if o.reference != "" {
		d = d.Str("reference", o.reference)
	}
	return d, true
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		observability.ObserveHTTP(routeOf(r), r.Method, statusOf(ww), time.Since(start))
	})
}

// ---- Structured logging middleware ----

// Logger writes one line per request; 4xx at warn, 5xx at error. Booking
// requests carry a "booking" object with the transaction outcome, so a 409
// reads as already_booked rather than a bare status.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, o := withOutcome(r.Context())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := statusOf(ww)
			ev := l.Info()
			switch {
			case status >= 500:
				ev = l.Error()
			case status >= 400:
				ev = l.Warn()
			}
			ev = ev.Str("route", routeOf(r)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", remoteIP(r)).
				Str("ua", r.UserAgent())
			if d, ok := o.dict(); ok {
				ev = ev.Dict("booking", d)
			}
			ev.Msg("http_request")
		})
	}
}

// routeOf reads the matched pattern after routing; chi fills it in on the
// shared route context while the request travels down.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func statusOf(ww chimw.WrapResponseWriter) int {
	if st := ww.Status(); st != 0 {
		return st
	}
	return http.StatusOK
}

// remoteIP strips the port; chimw.RealIP has already applied
// X-Forwarded-For / X-Real-IP to RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
