package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hotel_booking/internal/domain"
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *Repo) LoadHotels(ctx context.Context) ([]domain.HotelUnit, error) {
	const query = `
SELECT id, name, city, price::float8, available, supports_add_on
FROM hotels
ORDER BY position, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HotelUnit, error) {
		var h domain.HotelUnit
		err := row.Scan(&h.ID, &h.Name, &h.City, &h.Price, &h.Available, &h.SupportsAddOn)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan hotels: %w", err)
	}
	return out, nil
}

func (r *Repo) LoadPaymentCatalog(ctx context.Context) ([]domain.PaymentInstrument, error) {
	const query = `SELECT number, expiration, holder, cvc FROM payment_instruments`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PaymentInstrument, error) {
		var c domain.PaymentInstrument
		err := row.Scan(&c.Number, &c.Expiration, &c.Holder, &c.CVC)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan instruments: %w", err)
	}
	return out, nil
}

func (r *Repo) LoadPaymentSecrets(ctx context.Context) (map[string]string, error) {
	const query = `SELECT number, password FROM payment_secrets`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var number, password string
		if err := rows.Scan(&number, &password); err != nil {
			return nil, fmt.Errorf("scan secret: %w", err)
		}
		out[number] = password
	}
	return out, rows.Err()
}

// PersistHotel locks the row, checks the current availability and writes the
// booked state in one transaction.
func (r *Repo) PersistHotel(ctx context.Context, h domain.HotelUnit) error {
	if h.Available {
		return fmt.Errorf("hotel %s: availability never reverts: %w", h.ID, domain.ErrInvalidRequest)
	}

	return r.WithTx(ctx, func(txCtx context.Context) error {
		available, err := r.getAvailabilityForUpdate(txCtx, h.ID)
		if err != nil {
			return err
		}
		if !available {
			return domain.ErrAlreadyBooked
		}
		const stmt = `UPDATE hotels SET available = FALSE, updated_at = now() WHERE id = $1`
		if _, err := r.exec(txCtx, stmt, h.ID); err != nil {
			return fmt.Errorf("book hotel: %w", err)
		}
		return nil
	})
}

func (r *Repo) getAvailabilityForUpdate(ctx context.Context, id string) (bool, error) {
	const query = `SELECT available FROM hotels WHERE id = $1 FOR UPDATE`
	var available bool
	err := r.queryRow(ctx, query, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("get hotel: %w", err)
	}
	return available, nil
}

func (r *Repo) UpsertHotel(ctx context.Context, position int, h domain.HotelUnit) error {
	const stmt = `
INSERT INTO hotels (id, position, name, city, price, available, supports_add_on)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  position        = EXCLUDED.position,
  name            = EXCLUDED.name,
  city            = EXCLUDED.city,
  price           = EXCLUDED.price,
  available       = hotels.available AND EXCLUDED.available,
  supports_add_on = EXCLUDED.supports_add_on,
  updated_at      = now()`

	if _, err := r.exec(ctx, stmt, h.ID, position, h.Name, h.City, h.Price, h.Available, h.SupportsAddOn); err != nil {
		return fmt.Errorf("upsert hotel: %w", err)
	}
	return nil
}

func (r *Repo) UpsertInstruments(ctx context.Context, cards []domain.PaymentInstrument) error {
	const stmt = `
INSERT INTO payment_instruments (number, expiration, holder, cvc)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range cards {
		batch.Queue(stmt, c.Number, c.Expiration, c.Holder, c.CVC)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert instruments: %w", err)
	}
	return nil
}

func (r *Repo) UpsertSecrets(ctx context.Context, secrets []domain.PaymentSecret) error {
	const stmt = `
INSERT INTO payment_secrets (number, password)
VALUES ($1, $2)
ON CONFLICT (number) DO UPDATE SET password = EXCLUDED.password`

	batch := &pgx.Batch{}
	for _, s := range secrets {
		batch.Queue(stmt, s.Number, s.Password)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert secrets: %w", err)
	}
	return nil
}
