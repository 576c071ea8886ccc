package domain

import (
	"time"

	"hotelrides/internal/pkg/money"
)

// ServiceProvider is the local projection of the provider registry this core reads from.
type ServiceProvider struct {
	ID            string        `gorm:"type:varchar(64);primaryKey" json:"id"`
	HotelID       string        `gorm:"type:varchar(64);index" json:"hotel_id"`
	Name          string        `gorm:"type:varchar(255)" json:"name"`
	MarkupPercent money.Percent `gorm:"not null;default:0" json:"markup_percentage"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (ServiceProvider) TableName() string { return "service_providers" }

// ProviderTariff is a fixed price used by the pay-first flow.
type ProviderTariff struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	ProviderID string      `gorm:"type:varchar(64);uniqueIndex:idx_provider_service;not null" json:"provider_id"`
	ServiceID  string      `gorm:"type:varchar(64);uniqueIndex:idx_provider_service;not null" json:"service_id"`
	BasePrice  money.Cents `gorm:"not null" json:"base_price"`
	Currency   string      `gorm:"type:varchar(3)" json:"currency"`
}

func (ProviderTariff) TableName() string { return "provider_tariffs" }
