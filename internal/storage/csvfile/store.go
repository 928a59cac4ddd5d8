// Package csvfile is the file-backed store: hotels.csv, cards.csv and
// card_security.csv in one directory. Bookings rewrite hotels.csv through a
// temp file and rename, so readers never see a half-written dataset.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hotel_booking/internal/adapters/dataset"
	"hotel_booking/internal/domain"
)

const (
	HotelsFile  = "hotels.csv"
	CardsFile   = "cards.csv"
	SecretsFile = "card_security.csv"
)

// Store is safe for concurrent use within one process. Two processes sharing
// a directory are not coordinated.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) open(name string) (*os.File, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) LoadHotels(ctx context.Context) ([]domain.HotelUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.open(HotelsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ParseHotels(f)
}

func (s *Store) LoadPaymentCatalog(ctx context.Context) ([]domain.PaymentInstrument, error) {
	f, err := s.open(CardsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ParseInstruments(f)
}

func (s *Store) LoadPaymentSecrets(ctx context.Context) (map[string]string, error) {
	f, err := s.open(SecretsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	secrets, err := dataset.ParseSecrets(f)
	if err != nil {
		return nil, err
	}
	return dataset.SecretsMap(secrets), nil
}

// PersistHotel rewrites h's row in hotels.csv. Columns that are not present
// in the file are left out; every other row is written back untouched.
func (s *Store) PersistHotel(ctx context.Context, h domain.HotelUnit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.Available {
		return fmt.Errorf("hotel %s: availability never reverts: %w", h.ID, domain.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readHotelRows()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", HotelsFile, dataset.ErrMissingColumn)
	}
	header := rows[0]
	col := func(key string) int { return dataset.HotelColumn(header, key) }
	idCol, availCol := col("id"), col("available")
	if idCol < 0 || availCol < 0 {
		return fmt.Errorf("%s: %w", HotelsFile, dataset.ErrMissingColumn)
	}

	target := -1
	for i := 1; i < len(rows); i++ {
		if idCol < len(rows[i]) && strings.TrimSpace(rows[i][idCol]) == h.ID {
			target = i
			break
		}
	}
	if target < 0 {
		return domain.ErrNotFound
	}
	row := rows[target]
	for len(row) < len(header) {
		row = append(row, "")
	}

	available, err := dataset.ParseYesNo(row[availCol])
	if err != nil {
		return fmt.Errorf("hotel %s: %w", h.ID, err)
	}
	if !available {
		return domain.ErrAlreadyBooked
	}
	row[availCol] = dataset.FormatYesNo(false)
	rows[target] = row

	return s.writeHotelRows(rows)
}

func (s *Store) readHotelRows() ([][]string, error) {
	f, err := s.open(HotelsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", HotelsFile, err)
		}
		rows = append(rows, rec)
	}
}

func (s *Store) writeHotelRows(rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, HotelsFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", HotelsFile, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", HotelsFile, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(HotelsFile))
}
