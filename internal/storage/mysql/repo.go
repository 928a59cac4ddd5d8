package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hotel_booking/internal/domain"
)

// batchSize keeps multi-row inserts well under max_allowed_packet.
const batchSize = 500

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- booking store ----

func (r *Repo) LoadHotels(ctx context.Context) ([]domain.HotelUnit, error) {
	rows, err := r.db.QueryContext(ctx, listHotelsSQL)
	if err != nil {
		return nil, fmt.Errorf("list hotels: %w", err)
	}
	defer rows.Close()

	var out []domain.HotelUnit
	for rows.Next() {
		var h domain.HotelUnit
		if err := rows.Scan(&h.ID, &h.Name, &h.City, &h.Price, &h.Available, &h.SupportsAddOn); err != nil {
			return nil, fmt.Errorf("scan hotel: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) LoadPaymentCatalog(ctx context.Context) ([]domain.PaymentInstrument, error) {
	rows, err := r.db.QueryContext(ctx, listInstrumentsSQL)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentInstrument
	for rows.Next() {
		var c domain.PaymentInstrument
		if err := rows.Scan(&c.Number, &c.Expiration, &c.Holder, &c.CVC); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) LoadPaymentSecrets(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, listSecretsSQL)
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

// PersistHotel only ever writes the booked transition; the row lock taken by
// the conditional UPDATE makes concurrent processes agree on one winner.
func (r *Repo) PersistHotel(ctx context.Context, h domain.HotelUnit) error {
	if h.Available {
		return fmt.Errorf("hotel %s: availability never reverts: %w", h.ID, domain.ErrInvalidRequest)
	}
	res, err := r.db.ExecContext(ctx, bookHotelSQL, h.ID)
	if err != nil {
		return fmt.Errorf("book hotel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("book hotel rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, hotelExistsSQL, h.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check hotel: %w", err)
	}
	return domain.ErrAlreadyBooked
}

// ---- dataset writer ----

func (r *Repo) UpsertHotel(ctx context.Context, position int, h domain.HotelUnit) error {
	_, err := r.db.ExecContext(ctx, upsertHotelSQL,
		h.ID,
		position,
		h.Name,
		h.City,
		h.Price,
		h.Available,
		h.SupportsAddOn,
	)
	return err
}

func (r *Repo) UpsertInstruments(ctx context.Context, cards []domain.PaymentInstrument) error {
	for start := 0; start < len(cards); start += batchSize {
		end := min(start+batchSize, len(cards))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*4)
		for _, c := range cards[start:end] {
			values = append(values, "(?,?,?,?)")
			args = append(args, c.Number, c.Expiration, c.Holder, c.CVC)
		}
		if _, err := r.db.ExecContext(ctx, insertInstrumentsPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert instruments: %w", err)
		}
	}
	return nil
}

func (r *Repo) UpsertSecrets(ctx context.Context, secrets []domain.PaymentSecret) error {
	for start := 0; start < len(secrets); start += batchSize {
		end := min(start+batchSize, len(secrets))
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*2)
		for _, s := range secrets[start:end] {
			values = append(values, "(?,?)")
			args = append(args, s.Number, s.Password)
		}
		sqlStr := insertSecretsPrefix + strings.Join(values, ",") + insertSecretsOnDup
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("upsert secrets: %w", err)
		}
	}
	return nil
}
