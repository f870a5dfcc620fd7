package booking

import (
	"context"
	"fmt"

	"ferryline/pkg/client"
	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// CreateRequest is the payload sent to the booking-creation collaborator.
// It carries the cart's selections; the server owns authoritative pricing.
type CreateRequest struct {
	OutboundSailingID string                 `json:"outboundSailingId"`
	ReturnSailingID   string                 `json:"returnSailingId,omitempty"`
	Passengers        []model.Passenger      `json:"passengers"`
	Vehicles          []model.Vehicle        `json:"vehicles,omitempty"`
	Cabins            []model.CabinSelection `json:"cabins,omitempty"`
	Meals             []model.MealSelection  `json:"meals,omitempty"`
	Contact           model.ContactInfo      `json:"contact"`
	PromoCode         string                 `json:"promoCode,omitempty"`
	Protection        bool                   `json:"cancellationProtection"`
	ProvisionalTotal  float64                `json:"provisionalTotal"`
}

// Client calls the booking-creation/payment collaborator. Failures are
// retryable by contract: the cart is never corrupted by a failed create.
type Client struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewClient(http *client.HttpClient, log *logger.Logger) *Client {
	return &Client{
		http: http,
		log:  log.WithComponent("booking-client"),
	}
}

// Create asks the server to create (or re-create) the booking. The returned
// record's TotalAmount supersedes the cart's provisional total and its
// ExpiresAt drives the payment-session countdown.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*model.BookingRecord, error) {
	resp, err := c.http.POST(ctx, "/api/v1/bookings", req)
	if err != nil {
		return nil, apperrors.BookingFailed("booking service unreachable", err)
	}
	if !resp.OK() {
		return nil, apperrors.BookingFailed(
			fmt.Sprintf("booking service returned %d", resp.StatusCode), nil)
	}

	var record model.BookingRecord
	if err := resp.DecodeJSON(&record); err != nil {
		return nil, apperrors.BookingFailed("malformed booking response", err)
	}
	if record.Reference == "" {
		return nil, apperrors.BookingFailed("booking response without a reference", nil)
	}

	c.log.Info("booking created",
		"reference", record.Reference,
		"status", record.Status,
		"total", record.TotalAmount,
		"expires_at", record.ExpiresAt,
	)
	return &record, nil
}

// ConfirmPayment reports the payment gateway's outcome for the booking.
func (c *Client) ConfirmPayment(ctx context.Context, reference string) (*model.BookingRecord, error) {
	resp, err := c.http.POST(ctx, fmt.Sprintf("/api/v1/bookings/%s/confirm", reference), nil)
	if err != nil {
		return nil, apperrors.BookingFailed("booking service unreachable", err)
	}
	if !resp.OK() {
		return nil, apperrors.BookingFailed(
			fmt.Sprintf("payment confirmation returned %d", resp.StatusCode), nil)
	}

	var record model.BookingRecord
	if err := resp.DecodeJSON(&record); err != nil {
		return nil, apperrors.BookingFailed("malformed confirmation response", err)
	}
	return &record, nil
}
