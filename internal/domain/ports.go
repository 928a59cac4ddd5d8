package domain

import "context"

// Store is the durable contract the booking core consumes.
type Store interface {
	LoadHotels(ctx context.Context) ([]HotelUnit, error)
	LoadPaymentCatalog(ctx context.Context) ([]PaymentInstrument, error)
	LoadPaymentSecrets(ctx context.Context) (map[string]string, error)
	// PersistHotel records that h was booked: a conditional transition that
	// returns ErrAlreadyBooked if the stored unit is already unavailable.
	// Units with Available set are rejected with ErrInvalidRequest.
	PersistHotel(ctx context.Context, h HotelUnit) error
}

// DatasetWriter is used by ingestion to seed a durable backend. position is
// the unit's row in the source dataset and fixes listing order. Re-ingesting
// a unit never makes a booked unit available again.
type DatasetWriter interface {
	UpsertHotel(ctx context.Context, position int, h HotelUnit) error
	UpsertInstruments(ctx context.Context, cards []PaymentInstrument) error
	UpsertSecrets(ctx context.Context, secrets []PaymentSecret) error
}

// DatasetSource reads the raw datasets; src is a file path or URL.
type DatasetSource interface {
	Hotels(ctx context.Context, src string) ([]HotelUnit, error)
	Instruments(ctx context.Context, src string) ([]PaymentInstrument, error)
	Secrets(ctx context.Context, src string) ([]PaymentSecret, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
}

type EventPublisher interface {
	PublishConfirmed(ctx context.Context, ev BookingConfirmed) error
}

// Engine collaborators

type Inventory interface {
	Get(hotelID string) (HotelUnit, error)
	ListAvailable() []HotelUnit
	TryBook(ctx context.Context, hotelID string) (bool, error)
	BookAddOn(ctx context.Context, hotelID string) error
}

type CardValidator interface {
	Validate(card Card) bool
}

type CardAuthenticator interface {
	Authenticate(number, password string) bool
}
