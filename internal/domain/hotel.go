package domain

// HotelUnit is a single bookable unit. Available only ever flips true -> false,
// and only through the inventory store's atomic book operation.
type HotelUnit struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	City          string  `json:"city"`
	Price         float64 `json:"price"`
	Available     bool    `json:"available"`
	SupportsAddOn bool    `json:"supports_add_on"`
}
