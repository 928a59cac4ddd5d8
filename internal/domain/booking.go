package domain

// State is a position in the booking state machine.
type State string

const (
	StateInitiated            State = "initiated"
	StateValidated            State = "validated"
	StateAuthenticated        State = "authenticated"
	StateReserved             State = "reserved"
	StateConfirmed            State = "confirmed"
	StateValidationFailed     State = "validation_failed"
	StateAuthenticationFailed State = "authentication_failed"
	StateAlreadyBooked        State = "already_booked"
	StatePersistenceFailed    State = "persistence_failed"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateValidationFailed, StateAuthenticationFailed,
		StateAlreadyBooked, StatePersistenceFailed:
		return true
	}
	return false
}

type FailureReason string

const (
	FailureNone           FailureReason = ""
	FailureValidation     FailureReason = "validation_failed"
	FailureAuthentication FailureReason = "authentication_failed"
	FailureAlreadyBooked  FailureReason = "already_booked"
	FailurePersistence    FailureReason = "persistence_failure"
	FailureAddOn          FailureReason = "add_on_unsupported"
)

// BookingRequest is transient: built per user action and discarded afterwards.
type BookingRequest struct {
	CustomerName string `json:"customer_name"`
	HotelID      string `json:"hotel_id"`
	Card         Card   `json:"card"`
	Password     string `json:"password"`
	WantsAddOn   bool   `json:"wants_add_on"`
}

// ReservationResult is produced by the booking engine and rendered by callers.
type ReservationResult struct {
	Success           bool          `json:"success"`
	State             State         `json:"state"`
	Hotel             HotelUnit     `json:"hotel"`
	FailureReason     FailureReason `json:"failure_reason,omitempty"`
	Reference         string        `json:"reference,omitempty"`
	ReservationTicket string        `json:"reservation_ticket,omitempty"`
	AddOnBooked       bool          `json:"add_on_booked"`
	AddOnTicket       string        `json:"add_on_ticket,omitempty"`
	AddOnFailure      FailureReason `json:"add_on_failure,omitempty"`
}

// BookingConfirmed is published after a reservation reaches StateConfirmed.
type BookingConfirmed struct {
	Reference    string  `json:"reference"`
	HotelID      string  `json:"hotel_id"`
	HotelName    string  `json:"hotel_name"`
	City         string  `json:"city"`
	Price        float64 `json:"price"`
	CustomerName string  `json:"customer_name"`
	AddOnBooked  bool    `json:"add_on_booked"`
}
