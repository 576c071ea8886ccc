package domain

import "time"

type NotificationType string

const (
	NotifBookingRequested NotificationType = "booking_requested"
	NotifQuoteReady       NotificationType = "quote_ready"
	NotifQuoteAnswered    NotificationType = "quote_answered"
	NotifPaymentReceived  NotificationType = "payment_received"
	NotifPaymentFailed    NotificationType = "payment_failed"
	NotifPaymentRefunded  NotificationType = "payment_refunded"
	NotifBookingConfirmed NotificationType = "booking_confirmed"
	NotifTripStarted      NotificationType = "trip_started"
	NotifTripCompleted    NotificationType = "trip_completed"
	NotifBookingCancelled NotificationType = "booking_cancelled"
	NotifQuoteExpired     NotificationType = "quote_expired"
	NotifNewMessage       NotificationType = "new_message"
)

// Notification is an in-app message for one guest or provider.
type Notification struct {
	ID               int64            `gorm:"primaryKey" json:"id"`
	RecipientID      string           `gorm:"type:varchar(64);not null;index:idx_notifications_recipient_unread" json:"recipient_id"`
	RecipientRole    ActorRole        `gorm:"type:varchar(20);not null" json:"recipient_role"`
	Type             NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title            string           `gorm:"type:varchar(200);not null" json:"title"`
	Body             string           `gorm:"type:text" json:"body,omitempty"`
	BookingReference string           `gorm:"type:varchar(40);index" json:"booking_reference,omitempty"`
	IsRead           bool             `gorm:"not null;default:false;index:idx_notifications_recipient_unread" json:"is_read"`
	ReadAt           *time.Time       `json:"read_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
