package booking

import (
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"
)

type CreateBookingRequest struct {
	HotelID        string    `json:"hotel_id" binding:"required"`
	ProviderID     string    `json:"provider_id" binding:"required"`
	ServiceID      string    `json:"service_id"`
	VehicleType    string    `json:"vehicle_type" binding:"required"`
	ComfortClass   string    `json:"comfort_class"`
	Pickup         string    `json:"pickup" binding:"required"`
	Destination    string    `json:"destination" binding:"required"`
	ScheduledAt    time.Time `json:"scheduled_at" binding:"required"`
	PassengerCount int       `json:"passenger_count" binding:"required,min=1"`
	Notes          string    `json:"notes"`
}

func (r CreateBookingRequest) Trip() domain.Trip {
	return domain.Trip{
		VehicleType:    r.VehicleType,
		ComfortClass:   r.ComfortClass,
		Pickup:         r.Pickup,
		Destination:    r.Destination,
		ScheduledAt:    r.ScheduledAt.UTC(),
		PassengerCount: r.PassengerCount,
	}
}

type QuoteRequest struct {
	BasePrice       money.Cents `json:"base_price"`
	Notes           string      `json:"notes"`
	ExpirationHours int         `json:"expiration_hours" binding:"omitempty,min=1,max=168"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type PaymentMethodRequest struct {
	Method domain.PaymentMethod `json:"payment_method" binding:"required,oneof=online cash"`
}

type MessageRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}
