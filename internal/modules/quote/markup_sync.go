package quote

import (
	"context"
	"errors"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"

	"go.uber.org/zap"
)

// MarkupSource returns the provider's current markup percentage.
type MarkupSource interface {
	CurrentMarkup(ctx context.Context, providerID string) (money.Percent, error)
}

// PricingWriter persists only the pricing columns of a booking.
type PricingWriter interface {
	UpdatePricing(ctx context.Context, b *domain.Booking) error
}

// SyncService keeps unfrozen bookings on the provider's current markup.
// Callers must hold the booking lock.
type SyncService struct {
	markups MarkupSource
	writer  PricingWriter
	log     *zap.Logger
}

func NewSyncService(markups MarkupSource, writer PricingWriter, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{markups: markups, writer: writer, log: log}
}

// Sync refreshes b in place and persists it when the percentage moved.
// A registry lookup failure leaves the booking on its last known markup.
func (s *SyncService) Sync(ctx context.Context, b *domain.Booking) (bool, error) {
	if b.IsMarkupFrozen() {
		return false, nil
	}

	pct, err := s.markups.CurrentMarkup(ctx, b.ProviderID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		s.log.Warn("markup lookup failed, keeping current markup",
			zap.String("booking_reference", b.Reference),
			zap.String("provider_id", b.ProviderID),
			zap.Error(err),
		)
		return false, nil
	}

	previous := b.Markup.Percentage
	if !ApplyMarkup(b, pct) {
		return false, nil
	}
	if err := s.writer.UpdatePricing(ctx, b); err != nil {
		return false, err
	}

	s.log.Info("markup synced",
		zap.String("booking_reference", b.Reference),
		zap.Stringer("from", previous),
		zap.Stringer("to", pct),
		zap.Int64("final_price_cents", int64(b.Quote.FinalPrice)),
	)
	return true, nil
}
