package app

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/payment"
)

var ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

// BookingService is the single entry point the presentation layer calls. It
// wraps the engine with idempotent replay, the authentication-failure
// throttle and confirmation events.
type BookingService struct {
	inv      domain.Inventory
	engine   *BookingEngine
	cache    domain.Cache
	cacheTTL time.Duration
	events   domain.EventPublisher
	throttle *payment.Throttle
	fpKey    []byte
	group    singleflight.Group
}

type ServiceOption func(*BookingService)

func WithIdempotencyCache(c domain.Cache, ttl time.Duration) ServiceOption {
	return func(s *BookingService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithEvents(p domain.EventPublisher) ServiceOption {
	return func(s *BookingService) { s.events = p }
}

func WithThrottle(t *payment.Throttle) ServiceOption {
	return func(s *BookingService) { s.throttle = t }
}

// WithFingerprintKey sets the HMAC key for idempotency fingerprints. Replicas
// sharing one cache must share the key; without it a random per-process key
// is used and stored results only replay within this process.
func WithFingerprintKey(key []byte) ServiceOption {
	return func(s *BookingService) {
		if len(key) > 0 {
			s.fpKey = key
		}
	}
}

const defaultIdempotencyTTL = 24 * time.Hour

func NewBookingService(inv domain.Inventory, engine *BookingEngine, opts ...ServiceOption) *BookingService {
	s := &BookingService{inv: inv, engine: engine, cacheTTL: defaultIdempotencyTTL}
	for _, opt := range opts {
		opt(s)
	}
	if s.fpKey == nil {
		s.fpKey = make([]byte, 32)
		if _, err := rand.Read(s.fpKey); err != nil {
			panic("booking service: generate fingerprint key: " + err.Error())
		}
	}
	return s
}

func (s *BookingService) ListAvailable() []domain.HotelUnit { return s.inv.ListAvailable() }

func (s *BookingService) Hotel(id string) (domain.HotelUnit, error) { return s.inv.Get(id) }

type idempotentResult struct {
	Fingerprint string                   `json:"fingerprint"`
	Result      domain.ReservationResult `json:"result"`
}

// Submit books a hotel. With a non-empty idempotencyKey a stored result for
// the same request is replayed instead of re-running the transaction, and
// concurrent calls with that key share one execution. A call that reuses the
// key with a different request gets ErrIdempotencyConflict, whether the
// original is stored or still running.
func (s *BookingService) Submit(ctx context.Context, idempotencyKey string, req domain.BookingRequest) (domain.ReservationResult, error) {
	if idempotencyKey == "" {
		return s.submit(ctx, req)
	}

	key := "booking:idem:" + idempotencyKey
	fp := s.fingerprint(req)

	// the shared execution outlives the caller that started it; joined
	// callers must not inherit its cancellation
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if stored, ok := s.replay(shared, key); ok {
			return stored, nil
		}
		res, err := s.submit(shared, req)
		if err != nil {
			return idempotentResult{Fingerprint: fp}, err
		}
		out := idempotentResult{Fingerprint: fp, Result: res}
		// indeterminate outcomes must be retried by the caller, not replayed
		if res.FailureReason != domain.FailurePersistence && s.cache != nil {
			if err := s.cache.Set(shared, key, out, int(s.cacheTTL.Seconds())); err != nil {
				log.Warn().Err(err).Msg("store idempotent result failed")
			}
		}
		return out, nil
	})
	got, _ := v.(idempotentResult)
	if !hmac.Equal([]byte(got.Fingerprint), []byte(fp)) {
		return domain.ReservationResult{}, ErrIdempotencyConflict
	}
	if err != nil {
		return domain.ReservationResult{}, err
	}
	return got.Result, nil
}

func (s *BookingService) replay(ctx context.Context, key string) (idempotentResult, bool) {
	if s.cache == nil {
		return idempotentResult{}, false
	}
	var stored idempotentResult
	ok, err := s.cache.Get(ctx, key, &stored)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency cache read failed")
		return idempotentResult{}, false
	}
	return stored, ok
}

func (s *BookingService) submit(ctx context.Context, req domain.BookingRequest) (domain.ReservationResult, error) {
	attempt, ok := s.throttle.Begin(req.Card.Number)
	if !ok {
		observability.ObserveBooking("throttled")
		return domain.ReservationResult{}, domain.ErrTooManyAttempts
	}

	res, err := s.engine.Submit(ctx, req)
	switch {
	case err != nil, res.FailureReason == domain.FailureValidation:
		// the secret was never checked
		attempt.Release()
	case res.FailureReason == domain.FailureAuthentication:
		attempt.Failed()
	default:
		attempt.Succeeded()
	}
	if err != nil {
		return domain.ReservationResult{}, err
	}

	if res.Success && s.events != nil {
		ev := domain.BookingConfirmed{
			Reference:    res.Reference,
			HotelID:      res.Hotel.ID,
			HotelName:    res.Hotel.Name,
			City:         res.Hotel.City,
			Price:        res.Hotel.Price,
			CustomerName: req.CustomerName,
			AddOnBooked:  res.AddOnBooked,
		}
		if err := s.events.PublishConfirmed(ctx, ev); err != nil {
			log.Warn().Err(err).Str("reference", res.Reference).Msg("publish booking event failed")
		}
	}
	return res, nil
}

// fingerprint identifies a request without keeping card data in the cache.
// It is keyed so stored values cannot be brute-forced back to a CVC or
// password offline.
func (s *BookingService) fingerprint(req domain.BookingRequest) string {
	h := hmac.New(sha256.New, s.fpKey)
	for _, part := range []string{
		req.CustomerName, req.HotelID,
		req.Card.Number, req.Card.Expiration, req.Card.Holder, req.Card.CVC,
		req.Password, strconv.FormatBool(req.WantsAddOn),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
