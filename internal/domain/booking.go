package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

// BookingKind tags which flow produced a booking.
type BookingKind string

const (
	// KindTransport is quote-driven: the booking exists before payment.
	KindTransport BookingKind = "transport"
	// KindTransportPayFirst is created by the reconciler once the gateway reports success.
	KindTransportPayFirst BookingKind = "transport_pay_first"
)

type ActorRole string

const (
	RoleGuest      ActorRole = "guest"
	RoleProvider   ActorRole = "provider"
	RoleHotelStaff ActorRole = "hotel_staff"
	RoleSystem     ActorRole = "system"
	RoleGateway    ActorRole = "gateway"
)

// Actor identifies who caused a change.
type Actor struct {
	ID   string    `json:"id,omitempty"`
	Role ActorRole `json:"role"`
}

var (
	SystemActor  = Actor{ID: "system", Role: RoleSystem}
	GatewayActor = Actor{ID: "payment-gateway", Role: RoleGateway}
)

type Trip struct {
	VehicleType    string    `gorm:"type:varchar(40)" json:"vehicle_type"`
	ComfortClass   string    `gorm:"type:varchar(40)" json:"comfort_class"`
	Pickup         string    `gorm:"type:text" json:"pickup"`
	Destination    string    `gorm:"type:text" json:"destination"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	PassengerCount int       `json:"passenger_count"`
}

// Quote is nil-equivalent until IssuedAt is set.
type Quote struct {
	BasePrice     money.Cents   `json:"base_price"`
	MarkupPercent money.Percent `json:"markup_percentage"`
	MarkupAmount  money.Cents   `json:"markup_amount"`
	FinalPrice    money.Cents   `json:"final_price"`
	IssuedAt      *time.Time    `json:"issued_at,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
}

func (q Quote) Exists() bool { return q.IssuedAt != nil }

func (q Quote) ExpiredAt(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

type Markup struct {
	Percentage money.Percent `json:"percentage"`
	Amount     money.Cents   `json:"amount"`
}

type Cancellation struct {
	ActorID      string      `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	ActorRole    ActorRole   `gorm:"type:varchar(20)" json:"actor_role,omitempty"`
	At           *time.Time  `json:"at,omitempty"`
	Reason       string      `gorm:"type:text" json:"reason,omitempty"`
	RefundAmount money.Cents `json:"refund_amount"`
	FeeAmount    money.Cents `json:"fee_amount"`
}

func (c Cancellation) Exists() bool { return c.At != nil }

type Feedback struct {
	Rating      int        `json:"rating,omitempty"`
	Comment     string     `gorm:"type:text" json:"comment,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Booking is the aggregate root for a guest transport request.
type Booking struct {
	ID              int64       `gorm:"primaryKey" json:"id"`
	Reference       string      `gorm:"type:varchar(40);uniqueIndex;not null" json:"booking_reference"`
	Kind            BookingKind `gorm:"type:varchar(32);not null;default:'transport'" json:"kind"`
	SourceReference *string     `gorm:"type:varchar(64);uniqueIndex" json:"source_reference,omitempty"`

	GuestID    string `gorm:"type:varchar(64);index;not null" json:"guest_id"`
	HotelID    string `gorm:"type:varchar(64);index;not null" json:"hotel_id"`
	ProviderID string `gorm:"type:varchar(64);index;not null" json:"provider_id"`
	ServiceID  string `gorm:"type:varchar(64)" json:"service_id"`

	Trip Trip `gorm:"embedded;embeddedPrefix:trip_" json:"trip"`

	Status BookingStatus `gorm:"type:varchar(32);index;not null" json:"status"`

	Quote          Quote      `gorm:"embedded;embeddedPrefix:quote_" json:"quote"`
	Markup         Markup     `gorm:"embedded;embeddedPrefix:markup_" json:"markup"`
	MarkupFrozenAt *time.Time `json:"markup_frozen_at,omitempty"`

	Payment      Payment      `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	SLA          SLA          `gorm:"embedded;embeddedPrefix:sla_" json:"sla"`
	Cancellation Cancellation `gorm:"embedded;embeddedPrefix:cancellation_" json:"cancellation"`
	Feedback     Feedback     `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`

	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	History  []StatusHistoryEntry `gorm:"foreignKey:BookingID" json:"status_history"`
	Messages []CommunicationEntry `gorm:"foreignKey:BookingID" json:"communication_log"`
	Refunds  []PaymentRefund      `gorm:"foreignKey:BookingID" json:"refunds,omitempty"`

	events []BookingEvent
}

func (Booking) TableName() string { return "transport_bookings" }

// HasRefund reports whether the gateway refund id was already recorded.
func (b *Booking) HasRefund(refundID string) bool {
	for _, r := range b.Refunds {
		if r.RefundID == refundID {
			return true
		}
	}
	return false
}

func (b *Booking) IsMarkupFrozen() bool {
	return b.MarkupFrozenAt != nil || b.Status.FreezesMarkup()
}

// RecordEvent queues a domain event that is published after the booking is persisted.
func (b *Booking) RecordEvent(e BookingEvent) {
	b.events = append(b.events, e)
}

// PullEvents returns and clears queued events.
func (b *Booking) PullEvents() []BookingEvent {
	out := b.events
	b.events = nil
	return out
}

// Payable implementation.

func (b *Booking) PaymentReference() string { return b.Reference }
func (b *Booking) AmountDue() money.Cents { return b.Quote.FinalPrice }
func (b *Booking) CurrencyCode() string { return b.Payment.Currency }
func (b *Booking) PayableKind() BookingKind { return b.Kind }
func (b *Booking) PayerID() string { return b.GuestID }
