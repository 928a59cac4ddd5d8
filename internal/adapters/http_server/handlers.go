package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

type Handlers struct{ S *app.BookingService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const maxBookingBody = 64 << 10

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/hotels", h.listHotels)
	s.mux.Get("/v1/hotels/{id}", h.getHotel)
	s.mux.Post("/v1/bookings", h.createBooking)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	hotels := h.S.ListAvailable()
	if hotels == nil {
		hotels = []domain.HotelUnit{}
	}
	writeCacheable(w, r, hotels)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.S.Hotel(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}
	writeCacheable(w, r, hotel)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	req.HotelID = strings.TrimSpace(req.HotelID)

	key := r.Header.Get("Idempotency-Key")
	res, err := h.S.Submit(r.Context(), key, req)
	if err != nil {
		rejected := func(state string) { noteBookingState(r.Context(), key, req.HotelID, state, "", "") }
		switch {
		case errors.Is(err, domain.ErrNotFound):
			rejected("not_found")
			writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		case errors.Is(err, domain.ErrInvalidRequest):
			rejected("invalid")
			writeProblem(w, http.StatusBadRequest, "Invalid request", "hotel_id is required")
		case errors.Is(err, domain.ErrTooManyAttempts):
			rejected("throttled")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Attempts", "too many failed authentications for this card")
		case errors.Is(err, app.ErrIdempotencyConflict):
			rejected("idempotency_conflict")
			writeProblem(w, http.StatusUnprocessableEntity, "Idempotency conflict", err.Error())
		default:
			log.Error().Err(err).Msg("booking failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		}
		return
	}
	noteBooking(r.Context(), key, res)
	writeJSON(w, resultStatus(res), res)
}

func resultStatus(res domain.ReservationResult) int {
	switch res.FailureReason {
	case domain.FailureNone:
		return http.StatusCreated
	case domain.FailureValidation:
		return http.StatusPaymentRequired
	case domain.FailureAuthentication:
		return http.StatusForbidden
	case domain.FailureAlreadyBooked:
		return http.StatusConflict
	case domain.FailurePersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
