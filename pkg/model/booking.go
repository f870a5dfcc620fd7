package model

import "time"

// Booking statuses reported by the booking-creation collaborator.
// CONFIRMED and COMPLETED short-circuit navigation straight to confirmation.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCompleted = "COMPLETED"
	BookingFailed    = "FAILED"
)

// BookingRecord is the server's answer to a booking-creation call. Its
// TotalAmount supersedes the cart's provisional total and ExpiresAt feeds
// the payment-session countdown.
type BookingRecord struct {
	Reference   string    `json:"reference"`
	TotalAmount float64   `json:"totalAmount"`
	Currency    string    `json:"currency,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Status      string    `json:"status"`
}

// IsSettled reports whether the booking no longer needs the payment step.
func (b *BookingRecord) IsSettled() bool {
	return b.Status == BookingConfirmed || b.Status == BookingCompleted
}
