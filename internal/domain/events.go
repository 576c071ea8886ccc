package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

type EventType string

const (
	EventBookingCreated  EventType = "booking.created"
	EventStatusChanged   EventType = "booking.status_changed"
	EventPaymentFailed   EventType = "booking.payment_failed"
	EventPaymentRefunded EventType = "booking.payment_refunded"
	EventMessageAppended EventType = "booking.message_appended"
)

// BookingEvent is emitted by the state machine at the moment of a change.
type BookingEvent struct {
	ID               string        `json:"id"`
	Type             EventType     `json:"type"`
	BookingReference string        `json:"booking_reference"`
	GuestID          string        `json:"guest_id"`
	HotelID          string        `json:"hotel_id"`
	ProviderID       string        `json:"provider_id"`
	From             BookingStatus `json:"from,omitempty"`
	To               BookingStatus `json:"to"`
	Actor            Actor         `json:"actor"`
	Automatic        bool          `json:"automatic"`
	Note             string        `json:"note,omitempty"`
	Amount           money.Cents   `json:"amount"`
	Currency         string        `json:"currency,omitempty"`
	At               time.Time     `json:"at"`
}

func (e BookingEvent) IsCompletion() bool {
	return e.Type == EventStatusChanged && e.To == StatusCompleted
}
