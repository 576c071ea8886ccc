package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

// Payable is anything the gateway can be asked to collect for.
type Payable interface {
	PayableKind() BookingKind
	PaymentReference() string
	AmountDue() money.Cents
	CurrencyCode() string
	PayerID() string
}

type PendingOrderStatus string

const (
	PendingOrderAwaitingPayment PendingOrderStatus = "awaiting_payment"
	PendingOrderFailed          PendingOrderStatus = "failed"
)

// PendingOrder carries pay-first booking data until the gateway confirms payment.
type PendingOrder struct {
	TempReference string             `json:"temp_reference" validate:"required"`
	GuestID       string             `json:"guest_id" validate:"required"`
	HotelID       string             `json:"hotel_id" validate:"required"`
	ProviderID    string             `json:"provider_id" validate:"required"`
	ServiceID     string             `json:"service_id" validate:"required"`
	Trip          Trip               `json:"trip"`
	BasePrice     money.Cents        `json:"base_price" validate:"gt=0"`
	MarkupPercent money.Percent      `json:"markup_percentage" validate:"gte=0"`
	MarkupAmount  money.Cents        `json:"markup_amount"`
	FinalPrice    money.Cents        `json:"final_price" validate:"gtefield=BasePrice"`
	Currency      string             `json:"currency" validate:"required,currency"`
	Notes         string             `json:"notes,omitempty"`
	Status        PendingOrderStatus `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (o *PendingOrder) PayableKind() BookingKind { return KindTransportPayFirst }
func (o *PendingOrder) PaymentReference() string { return o.TempReference }
func (o *PendingOrder) AmountDue() money.Cents { return o.FinalPrice }
func (o *PendingOrder) CurrencyCode() string { return o.Currency }
func (o *PendingOrder) PayerID() string { return o.GuestID }

var (
	_ Payable = (*Booking)(nil)
	_ Payable = (*PendingOrder)(nil)
)
