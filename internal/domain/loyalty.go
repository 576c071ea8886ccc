package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

// LoyaltyAccrual is credited once per completed booking.
type LoyaltyAccrual struct {
	ID               int64       `gorm:"primaryKey" json:"id"`
	GuestID          string      `gorm:"type:varchar(64);not null;index" json:"guest_id"`
	HotelID          string      `gorm:"type:varchar(64);not null" json:"hotel_id"`
	BookingReference string      `gorm:"type:varchar(40);not null;uniqueIndex" json:"booking_reference"`
	Amount           money.Cents `gorm:"not null" json:"amount"`
	Points           int64       `gorm:"not null" json:"points"`
	CreatedAt        time.Time   `json:"created_at"`
}

func (LoyaltyAccrual) TableName() string { return "loyalty_accruals" }
