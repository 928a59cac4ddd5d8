package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hotel_booking/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hotelAliases = map[string][]string{
	"id":        {"id", "hotel_id"},
	"name":      {"name", "hotel_name"},
	"city":      {"city", "town"},
	"price":     {"price", "rate", "price_per_night"},
	"available": {"available", "availability"},
	"spa":       {"spa", "supports_spa", "add_on", "supports_add_on"},
}

var cardAliases = map[string][]string{
	"number":     {"number", "card_number"},
	"expiration": {"expiration", "expiry", "exp"},
	"holder":     {"holder", "card_holder", "name"},
	"cvc":        {"cvc", "cvv"},
}

var secretAliases = map[string][]string{
	"number":   {"number", "card_number"},
	"password": {"password", "secret"},
}

// ErrMissingColumn is returned when a required column has no alias in the header.
var ErrMissingColumn = errors.New("dataset: missing column")

/********** tiny helpers **********/

type record struct {
	row    int
	fields []string
}

type table struct {
	cols map[string]int // canonical name -> column index
	rows []record
}

// readTable parses CSV with a header row and resolves aliases to columns.
// Header names are matched case-insensitively; values are kept verbatim.
func readTable(r io.Reader, aliases map[string][]string, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty dataset", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[normHeader(h)] = i
	}

	t := &table{cols: map[string]int{}}
	for key, names := range aliases {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				t.cols[key] = i
				break
			}
		}
	}
	for _, key := range required {
		if _, ok := t.cols[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, key)
		}
	}

	for row := 2; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		t.rows = append(t.rows, record{row: row, fields: fields})
	}
	return t, nil
}

func normHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func (t *table) has(key string) bool {
	_, ok := t.cols[key]
	return ok
}

func (t *table) get(rec record, key string) string {
	i, ok := t.cols[key]
	if !ok || i >= len(rec.fields) {
		return ""
	}
	return rec.fields[i]
}

// ParseYesNo accepts the dataset's yes/no plus common boolean spellings.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no value: %q", s)
}

// FormatYesNo writes a flag in the dataset's own spelling.
func FormatYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HotelColumn resolves a canonical hotels.csv column in header, or -1.
func HotelColumn(header []string, key string) int {
	for _, n := range hotelAliases[key] {
		for i, h := range header {
			if normHeader(h) == n {
				return i
			}
		}
	}
	return -1
}

/********** mappers **********/

// ParseHotels maps hotels.csv rows in file order. A dataset without a spa
// column marks every unit as add-on capable.
func ParseHotels(r io.Reader) ([]domain.HotelUnit, error) {
	t, err := readTable(r, hotelAliases, "id", "name", "available")
	if err != nil {
		return nil, err
	}
	out := make([]domain.HotelUnit, 0, len(t.rows))
	for _, rec := range t.rows {
		h := domain.HotelUnit{
			ID:            strings.TrimSpace(t.get(rec, "id")),
			Name:          t.get(rec, "name"),
			City:          t.get(rec, "city"),
			SupportsAddOn: true,
		}
		if h.ID == "" {
			return nil, fmt.Errorf("row %d: empty id", rec.row)
		}
		if p := strings.TrimSpace(t.get(rec, "price")); p != "" {
			if h.Price, err = strconv.ParseFloat(p, 64); err != nil {
				return nil, fmt.Errorf("row %d: price: %w", rec.row, err)
			}
		}
		if h.Available, err = ParseYesNo(t.get(rec, "available")); err != nil {
			return nil, fmt.Errorf("row %d: available: %w", rec.row, err)
		}
		if t.has("spa") {
			if h.SupportsAddOn, err = ParseYesNo(t.get(rec, "spa")); err != nil {
				return nil, fmt.Errorf("row %d: spa: %w", rec.row, err)
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// ParseInstruments keeps every field verbatim; validation is exact-match.
func ParseInstruments(r io.Reader) ([]domain.PaymentInstrument, error) {
	t, err := readTable(r, cardAliases, "number", "expiration", "holder", "cvc")
	if err != nil {
		return nil, err
	}
	out := make([]domain.PaymentInstrument, 0, len(t.rows))
	for _, rec := range t.rows {
		out = append(out, domain.PaymentInstrument{
			Number:     t.get(rec, "number"),
			Expiration: t.get(rec, "expiration"),
			Holder:     t.get(rec, "holder"),
			CVC:        t.get(rec, "cvc"),
		})
	}
	return out, nil
}

// ParseSecrets rejects a second secret for the same card number.
func ParseSecrets(r io.Reader) ([]domain.PaymentSecret, error) {
	t, err := readTable(r, secretAliases, "number", "password")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int, len(t.rows))
	out := make([]domain.PaymentSecret, 0, len(t.rows))
	for _, rec := range t.rows {
		s := domain.PaymentSecret{Number: t.get(rec, "number"), Password: t.get(rec, "password")}
		if first, dup := seen[s.Number]; dup {
			return nil, fmt.Errorf("row %d: duplicate secret (first at row %d)", rec.row, first)
		}
		seen[s.Number] = rec.row
		out = append(out, s)
	}
	return out, nil
}

// SecretsMap is the lookup form the authenticator consumes.
func SecretsMap(secrets []domain.PaymentSecret) map[string]string {
	m := make(map[string]string, len(secrets))
	for _, s := range secrets {
		m[s.Number] = s.Password
	}
	return m
}
