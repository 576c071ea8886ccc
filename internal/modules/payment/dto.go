package payment

import (
	"hotelrides/internal/domain"
	"hotelrides/internal/modules/booking"
)

// CheckoutRequest opens a pay-first order. The booking is created only once
// the gateway reports success.
type CheckoutRequest struct {
	booking.CreateBookingRequest
}

type SessionResponse struct {
	Session *Session        `json:"session"`
	Booking *domain.Booking `json:"booking,omitempty"`
}

type CheckoutResponse struct {
	Order   *domain.PendingOrder `json:"order"`
	Session *Session             `json:"session"`
}

// OutcomeResponse is returned to the browser after a redirect callback.
type OutcomeResponse struct {
	Processed        bool                 `json:"processed"`
	AlreadyProcessed bool                 `json:"already_processed"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	OrderReference   string               `json:"order_reference"`
	Booking          *domain.Booking      `json:"booking,omitempty"`
	Message          string               `json:"message,omitempty"`
}
