package booking

import (
	"context"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"
)

// BookingRepository is the persistence surface of the booking aggregate.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	Save(ctx context.Context, b *domain.Booking) error
	UpdatePricing(ctx context.Context, b *domain.Booking) error
	GetByReference(ctx context.Context, ref string) (*domain.Booking, error)
	ReferenceExists(ctx context.Context, ref string) (bool, error)
	ListUnfrozenReferences(ctx context.Context, afterID int64, limit int) ([]string, int64, error)
	ListExpiredQuoteReferences(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// ProviderRegistry is owned by the onboarding side of the marketplace.
type ProviderRegistry interface {
	CurrentMarkup(ctx context.Context, providerID string) (money.Percent, error)
}

// MarkupSyncer refreshes an unfrozen booking's markup. Callers hold the booking lock.
type MarkupSyncer interface {
	Sync(ctx context.Context, b *domain.Booking) (bool, error)
}
