package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/ticket"
)

// BookingEngine runs one booking transaction:
//
//	Initiated -> Validated -> Authenticated -> Reserved -> Confirmed
//
// with ValidationFailed, AuthenticationFailed, AlreadyBooked and
// PersistenceFailed as failure exits. Payment gating always precedes the
// inventory commit, and the inventory is only touched through TryBook.
type BookingEngine struct {
	inv       domain.Inventory
	validator domain.CardValidator
	auth      domain.CardAuthenticator
	newRef    func() string
}

type EngineOption func(*BookingEngine)

// WithReferenceGenerator overrides how booking references are minted.
func WithReferenceGenerator(fn func() string) EngineOption {
	return func(e *BookingEngine) {
		if fn != nil {
			e.newRef = fn
		}
	}
}

func NewBookingEngine(inv domain.Inventory, v domain.CardValidator, a domain.CardAuthenticator, opts ...EngineOption) *BookingEngine {
	e := &BookingEngine{
		inv:       inv,
		validator: v,
		auth:      a,
		newRef:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit returns an error only for caller errors (unknown hotel, missing
// hotel id). Every booking outcome, including failures, is a result value.
func (e *BookingEngine) Submit(ctx context.Context, req domain.BookingRequest) (domain.ReservationResult, error) {
	if strings.TrimSpace(req.HotelID) == "" {
		return domain.ReservationResult{}, domain.ErrInvalidRequest
	}
	hotel, err := e.inv.Get(req.HotelID)
	if err != nil {
		return domain.ReservationResult{}, err
	}

	res := domain.ReservationResult{State: domain.StateInitiated, Hotel: hotel}

	if !e.validator.Validate(req.Card) {
		return e.finish(res, domain.StateValidationFailed, domain.FailureValidation), nil
	}
	res.State = domain.StateValidated

	if !e.auth.Authenticate(req.Card.Number, req.Password) {
		return e.finish(res, domain.StateAuthenticationFailed, domain.FailureAuthentication), nil
	}
	res.State = domain.StateAuthenticated

	booked, err := e.inv.TryBook(ctx, req.HotelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrPersistence) {
			return domain.ReservationResult{}, err
		}
		log.Error().Err(err).Str("hotel_id", req.HotelID).Msg("booking commit indeterminate")
		return e.finish(res, domain.StatePersistenceFailed, domain.FailurePersistence), nil
	}
	if !booked {
		if h, err := e.inv.Get(req.HotelID); err == nil {
			res.Hotel = h
		}
		return e.finish(res, domain.StateAlreadyBooked, domain.FailureAlreadyBooked), nil
	}
	res.State = domain.StateReserved
	res.Hotel.Available = false
	res.Reference = e.newRef()
	res.ReservationTicket = ticket.Reservation(req.CustomerName, res.Hotel)

	if req.WantsAddOn {
		if err := e.inv.BookAddOn(ctx, req.HotelID); err != nil {
			// the base reservation is already committed and stays confirmed
			log.Warn().Err(err).Str("hotel_id", req.HotelID).Msg("add-on not booked")
			res.AddOnFailure = domain.FailureAddOn
		} else {
			res.AddOnBooked = true
			res.AddOnTicket = ticket.AddOn(req.CustomerName, res.Hotel)
		}
	}

	res.Success = true
	return e.finish(res, domain.StateConfirmed, domain.FailureNone), nil
}

func (e *BookingEngine) finish(res domain.ReservationResult, st domain.State, reason domain.FailureReason) domain.ReservationResult {
	res.State = st
	res.FailureReason = reason
	observability.ObserveBooking(string(st))

	ev := log.Info()
	if reason != domain.FailureNone {
		ev = log.Warn()
	}
	ev.Str("hotel_id", res.Hotel.ID).
		Str("state", string(st)).
		Str("reference", res.Reference).
		Bool("add_on", res.AddOnBooked).
		Msg("booking finished")
	return res
}
