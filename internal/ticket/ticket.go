// Package ticket renders confirmation text for committed bookings.
package ticket

import (
	"fmt"

	"hotel_booking/internal/domain"
)

func Reservation(customerName string, h domain.HotelUnit) string {
	return fmt.Sprintf(`Thank you for your reservation!
Here are your booking data:
Name: %s
Hotel name: %s
City: %s
`, customerName, h.Name, h.City)
}

func AddOn(customerName string, h domain.HotelUnit) string {
	return fmt.Sprintf(`Thank you for your SPA reservation!
Here are your SPA booking data:
Name: %s
Hotel name: %s
`, customerName, h.Name)
}
