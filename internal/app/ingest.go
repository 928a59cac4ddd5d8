package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
	"hotel_booking/internal/payment"
)

// IngestionService seeds a durable backend from the CSV datasets.
type IngestionService struct {
	src         domain.DatasetSource
	dst         domain.DatasetWriter
	hashSecrets bool
}

func NewIngestionService(src domain.DatasetSource, dst domain.DatasetWriter, hashSecrets bool) *IngestionService {
	return &IngestionService{src: src, dst: dst, hashSecrets: hashSecrets}
}

// Hotels fetches the hotel dataset. Ids must be unique; the slice index is
// the position passed to IngestHotel.
func (s *IngestionService) Hotels(ctx context.Context, src string) ([]domain.HotelUnit, error) {
	hotels, err := s.src.Hotels(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch hotels: %w", err)
	}
	seen := make(map[string]struct{}, len(hotels))
	for _, h := range hotels {
		if _, dup := seen[h.ID]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateHotel, h.ID)
		}
		seen[h.ID] = struct{}{}
	}
	return hotels, nil
}

func (s *IngestionService) IngestHotel(ctx context.Context, position int, h domain.HotelUnit) error {
	if err := s.dst.UpsertHotel(ctx, position, h); err != nil {
		return fmt.Errorf("upsert hotel %s: %w", h.ID, err)
	}
	return nil
}

// IngestCatalog loads the card catalog and the card secrets. A missing secrets
// dataset is logged and skipped: no card can authenticate until it is loaded.
func (s *IngestionService) IngestCatalog(ctx context.Context, cardsSrc, secretsSrc string) error {
	cards, err := s.src.Instruments(ctx, cardsSrc)
	if err != nil {
		return fmt.Errorf("fetch cards: %w", err)
	}
	if err := s.dst.UpsertInstruments(ctx, cards); err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	log.Info().Int("cards", len(cards)).Msg("card catalog ingested")

	secrets, err := s.src.Secrets(ctx, secretsSrc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("src", secretsSrc).Msg("card secrets dataset missing")
			return nil
		}
		return fmt.Errorf("fetch secrets: %w", err)
	}
	if s.hashSecrets {
		for i := range secrets {
			if payment.IsHashed(secrets[i].Password) {
				continue
			}
			if secrets[i].Password, err = payment.HashSecret(secrets[i].Password); err != nil {
				return err
			}
		}
	}
	if err := s.dst.UpsertSecrets(ctx, secrets); err != nil {
		return fmt.Errorf("upsert secrets: %w", err)
	}
	log.Info().Int("secrets", len(secrets)).Bool("hashed", s.hashSecrets).Msg("card secrets ingested")
	return nil
}
