package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

type Persister interface {
	PersistHotel(ctx context.Context, h domain.HotelUnit) error
}

type entry struct {
	mu        sync.Mutex // held for the whole flip + durable write
	unit      domain.HotelUnit
	available atomic.Bool
}

func (e *entry) snapshot() domain.HotelUnit {
	u := e.unit
	u.Available = e.available.Load()
	return u
}

// Store owns the mutable availability of every hotel unit. The set of units
// is fixed after construction, so the index itself needs no locking.
type Store struct {
	persister      Persister
	byID           map[string]*entry
	order          []*entry
	persistTimeout time.Duration
}

type Option func(*Store)

// WithPersistTimeout bounds the durable write inside TryBook.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

const defaultPersistTimeout = 5 * time.Second

func New(hotels []domain.HotelUnit, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persister:      p,
		byID:           make(map[string]*entry, len(hotels)),
		order:          make([]*entry, 0, len(hotels)),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, h := range hotels {
		if _, dup := s.byID[h.ID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateHotel, h.ID)
		}
		e := &entry{unit: h}
		e.available.Store(h.Available)
		s.byID[h.ID] = e
		s.order = append(s.order, e)
	}
	return s, nil
}

// Load builds a Store from the backend's hotel dataset and persists through it.
func Load(ctx context.Context, backend domain.Store, opts ...Option) (*Store, error) {
	hotels, err := backend.LoadHotels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}
	return New(hotels, backend, opts...)
}

func (s *Store) Get(hotelID string) (domain.HotelUnit, error) {
	e, ok := s.byID[hotelID]
	if !ok {
		return domain.HotelUnit{}, domain.ErrNotFound
	}
	return e.snapshot(), nil
}

// ListAvailable returns the available units in dataset order.
func (s *Store) ListAvailable() []domain.HotelUnit {
	out := make([]domain.HotelUnit, 0, len(s.order))
	for _, e := range s.order {
		if e.available.Load() {
			out = append(out, e.snapshot())
		}
	}
	return out
}

// TryBook flips the unit from available to booked and reports whether this
// call made the transition. The new state is durable before true is returned.
// A failed or timed-out write leaves the unit available and returns an error
// wrapping domain.ErrPersistence.
func (s *Store) TryBook(ctx context.Context, hotelID string) (bool, error) {
	e, ok := s.byID[hotelID]
	if !ok {
		return false, domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.available.Load() {
		return false, nil
	}

	booked := e.snapshot()
	booked.Available = false

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	start := time.Now()
	err := s.persister.PersistHotel(pctx, booked)
	switch {
	case err == nil:
		observability.ObservePersist("ok", time.Since(start))
		e.available.Store(false)
		return true, nil
	case errors.Is(err, domain.ErrAlreadyBooked):
		// another process committed first; converge on the durable state
		observability.ObservePersist("conflict", time.Since(start))
		e.available.Store(false)
		return false, nil
	default:
		observability.ObservePersist("error", time.Since(start))
		log.Error().Err(err).Str("hotel_id", hotelID).Msg("persist booked hotel failed")
		return false, fmt.Errorf("%w: hotel %s: %w", domain.ErrPersistence, hotelID, err)
	}
}

// BookAddOn books the unit's add-on package. Add-ons carry no inventory, so
// there is nothing to lock.
func (s *Store) BookAddOn(_ context.Context, hotelID string) error {
	e, ok := s.byID[hotelID]
	if !ok {
		return domain.ErrNotFound
	}
	if !e.unit.SupportsAddOn {
		return domain.ErrAddOnUnsupported
	}
	return nil
}
