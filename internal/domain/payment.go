package domain

// PaymentInstrument is a catalog entry of a known-valid card.
type PaymentInstrument struct {
	Number     string
	Expiration string // MM/YY
	Holder     string
	CVC        string
}

// PaymentSecret binds a card number to its password. The password may be
// stored in plain form or argon2id-encoded (see payment.HashSecret).
type PaymentSecret struct {
	Number   string
	Password string
}

// Card is what a customer submits with a booking.
type Card struct {
	Number     string `json:"number"`
	Expiration string `json:"expiration"`
	Holder     string `json:"holder"`
	CVC        string `json:"cvc"`
}

// Instrument returns the catalog tuple for exact comparison.
func (c Card) Instrument() PaymentInstrument {
	return PaymentInstrument{Number: c.Number, Expiration: c.Expiration, Holder: c.Holder, CVC: c.CVC}
}
