// Package payment gates a booking on two independent checks: the submitted
// card must exist in the instrument catalog, and the presenter must know the
// card's secret.
package payment

import "hotel_booking/internal/domain"

// Validator checks submitted cards against the catalog of known instruments.
// Entries are indexed by number; the full tuple must match exactly.
type Validator struct {
	byNumber map[string][]domain.PaymentInstrument
}

func NewValidator(catalog []domain.PaymentInstrument) *Validator {
	v := &Validator{byNumber: make(map[string][]domain.PaymentInstrument, len(catalog))}
	for _, c := range catalog {
		v.byNumber[c.Number] = append(v.byNumber[c.Number], c)
	}
	return v
}

// Validate is case-sensitive and does no normalization.
func (v *Validator) Validate(card domain.Card) bool {
	want := card.Instrument()
	for _, c := range v.byNumber[card.Number] {
		if c == want {
			return true
		}
	}
	return false
}
