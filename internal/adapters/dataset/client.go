// Package dataset reads the hotel, card and card-secret CSV datasets from a
// local path or an HTTP(S) URL.
package dataset

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

type Client struct {
	hc *http.Client
	rl *rate.Limiter
}

func New(rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		hc: &http.Client{Timeout: 20 * time.Second},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

var (
	// ErrNotFound matches domain.ErrNotFound under errors.Is.
	ErrNotFound     = fmt.Errorf("dataset: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("dataset: unauthorized")
	ErrForbidden    = errors.New("dataset: forbidden")
)

// ---- Public API ----

func (c *Client) Hotels(ctx context.Context, src string) ([]domain.HotelUnit, error) {
	rc, err := c.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseHotels(rc)
}

func (c *Client) Instruments(ctx context.Context, src string) ([]domain.PaymentInstrument, error) {
	rc, err := c.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseInstruments(rc)
}

func (c *Client) Secrets(ctx context.Context, src string) ([]domain.PaymentSecret, error) {
	rc, err := c.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseSecrets(rc)
}

// Open returns the raw dataset. URLs are fetched with rate limiting and
// retries; anything else is treated as a file path.
func (c *Client) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		b, err := c.get(ctx, src)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	f, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	return f, err
}

// ---- Internals ----

// get performs a GET with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")
		req.Header.Set("User-Agent", "hotel-booking-ingestor/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("dataset", req.URL.Path, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return b, err

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
