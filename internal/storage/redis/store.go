// Package redisstore keeps hotel units and the payment catalog in Redis.
// Booking a unit runs a Lua script so the availability check and the flip
// are a single step on the server.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"hotel_booking/internal/domain"
)

const (
	hotelPrefix    = "booking:hotel:"
	orderKey       = "booking:hotels:order"
	instrumentsKey = "booking:card:instruments"
	secretsKey     = "booking:card:secrets"
)

// bookScript returns -1 when the unit does not exist, 0 when it is already
// booked and 1 when this call booked it.
var bookScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], 'available')
if not v then return -1 end
if v == '0' then return 0 end
redis.call('HSET', KEYS[1], 'available', '0')
return 1
`)

type Store struct {
	c *redis.Client
}

func New(c *redis.Client) *Store { return &Store{c: c} }

func hotelKey(id string) string { return hotelPrefix + id }

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *Store) LoadHotels(ctx context.Context) ([]domain.HotelUnit, error) {
	ids, err := s.c.ZRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list hotel ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if _, err := s.c.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, hotelKey(id))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load hotels: %w", err)
	}

	out := make([]domain.HotelUnit, 0, len(ids))
	for i, cmd := range cmds {
		m := cmd.Val()
		if len(m) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(m["price"], 64)
		if err != nil {
			return nil, fmt.Errorf("hotel %s: bad price %q", ids[i], m["price"])
		}
		out = append(out, domain.HotelUnit{
			ID:            ids[i],
			Name:          m["name"],
			City:          m["city"],
			Price:         price,
			Available:     m["available"] == "1",
			SupportsAddOn: m["supports_add_on"] == "1",
		})
	}
	return out, nil
}

func (s *Store) LoadPaymentCatalog(ctx context.Context) ([]domain.PaymentInstrument, error) {
	members, err := s.c.SMembers(ctx, instrumentsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	out := make([]domain.PaymentInstrument, 0, len(members))
	for _, m := range members {
		var c domain.PaymentInstrument
		if err := json.Unmarshal([]byte(m), &c); err != nil {
			return nil, fmt.Errorf("decode instrument: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) LoadPaymentSecrets(ctx context.Context) (map[string]string, error) {
	m, err := s.c.HGetAll(ctx, secretsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	return m, nil
}

func (s *Store) PersistHotel(ctx context.Context, h domain.HotelUnit) error {
	if h.Available {
		return fmt.Errorf("hotel %s: availability never reverts: %w", h.ID, domain.ErrInvalidRequest)
	}
	res, err := bookScript.Run(ctx, s.c, []string{hotelKey(h.ID)}).Int()
	if err != nil {
		return fmt.Errorf("book hotel: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return domain.ErrAlreadyBooked
	case -1:
		return domain.ErrNotFound
	default:
		return errors.New("book hotel: unexpected script result")
	}
}

func (s *Store) UpsertHotel(ctx context.Context, position int, h domain.HotelUnit) error {
	key := hotelKey(h.ID)
	_, err := s.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"name", h.Name,
			"city", h.City,
			"price", strconv.FormatFloat(h.Price, 'f', -1, 64),
			"supports_add_on", flag(h.SupportsAddOn),
		)
		// an available row never overwrites a stored booking
		if h.Available {
			p.HSetNX(ctx, key, "available", "1")
		} else {
			p.HSet(ctx, key, "available", "0")
		}
		p.ZAdd(ctx, orderKey, redis.Z{Score: float64(position), Member: h.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert hotel: %w", err)
	}
	return nil
}

func (s *Store) UpsertInstruments(ctx context.Context, cards []domain.PaymentInstrument) error {
	if len(cards) == 0 {
		return nil
	}
	members := make([]any, 0, len(cards))
	for _, c := range cards {
		b, err := json.Marshal(c)
		if err != nil {
			return err
		}
		members = append(members, string(b))
	}
	if err := s.c.SAdd(ctx, instrumentsKey, members...).Err(); err != nil {
		return fmt.Errorf("insert instruments: %w", err)
	}
	return nil
}

func (s *Store) UpsertSecrets(ctx context.Context, secrets []domain.PaymentSecret) error {
	if len(secrets) == 0 {
		return nil
	}
	values := make(map[string]any, len(secrets))
	for _, sec := range secrets {
		values[sec.Number] = sec.Password
	}
	if err := s.c.HSet(ctx, secretsKey, values).Err(); err != nil {
		return fmt.Errorf("upsert secrets: %w", err)
	}
	return nil
}
