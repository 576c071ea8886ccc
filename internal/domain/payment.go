package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCash
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// GatewayRecord is the gateway-specific part of a payment.
type GatewayRecord struct {
	SessionID       string  `gorm:"type:varchar(128)" json:"session_id,omitempty"`
	OrderReference  string  `gorm:"type:varchar(64);index:idx_transport_bookings_gateway_order" json:"order_reference,omitempty"`
	TransactionID   *string `gorm:"type:varchar(128);uniqueIndex:idx_transport_bookings_gateway_txn" json:"transaction_id,omitempty"`
	RawPayload      string  `gorm:"type:text" json:"-"`
	FailureReason   string  `gorm:"type:text" json:"failure_reason,omitempty"`
	ResponseCode    string  `gorm:"type:varchar(40)" json:"response_code,omitempty"`
	ResponseMessage string  `gorm:"type:text" json:"response_message,omitempty"`
}

type Payment struct {
	Method           PaymentMethod `gorm:"type:varchar(20)" json:"method,omitempty"`
	Status           PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	TotalAmount      money.Cents   `json:"total_amount"`
	PaidAmount       money.Cents   `json:"paid_amount"`
	RefundedAmount   money.Cents   `json:"refunded_amount"`
	Currency         string        `gorm:"type:varchar(3)" json:"currency"`
	ProviderEarnings money.Cents   `json:"provider_earnings"`
	HotelCommission  money.Cents   `json:"hotel_commission"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	Gateway          GatewayRecord `gorm:"embedded;embeddedPrefix:gateway_" json:"gateway"`
}

// PaymentOutcome is what the reconciler hands to the state machine on success.
type PaymentOutcome struct {
	TransactionID   string
	OrderReference  string
	Amount          money.Cents
	Currency        string
	PaidAt          time.Time
	RawPayload      string
	ResponseCode    string
	ResponseMessage string
}

// RefundOutcome is a gateway-confirmed refund against a paid booking.
type RefundOutcome struct {
	RefundID   string
	Amount     money.Cents
	Currency   string
	At         time.Time
	RawPayload string
}

// PaymentRefund rows are insert-only; RefundID makes a replayed refund a no-op.
type PaymentRefund struct {
	ID        int64       `gorm:"primaryKey" json:"-"`
	BookingID int64       `gorm:"index;not null" json:"-"`
	RefundID  string      `gorm:"type:varchar(160);uniqueIndex;not null" json:"refund_id"`
	Amount    money.Cents `gorm:"not null" json:"amount"`
	Currency  string      `gorm:"type:varchar(3)" json:"currency"`
	At        time.Time   `gorm:"not null" json:"at"`
}

func (PaymentRefund) TableName() string { return "transport_booking_refunds" }
