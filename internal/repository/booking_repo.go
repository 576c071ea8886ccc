package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelrides/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var unfrozenStatuses = []domain.BookingStatus{
	domain.StatusPendingQuote,
	domain.StatusQuoteSent,
	domain.StatusQuoteAccepted,
}

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking with its initial history and messages.
// A unique violation on reference, source reference or transaction id is
// reported as domain.ErrDuplicateTransaction.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.Version == 0 {
			b.Version = 1
		}
		if err := tx.Omit(clause.Associations).Create(b).Error; err != nil {
			return err
		}
		return appendChildren(tx, b)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("create booking %s: %w", b.Reference, domain.ErrDuplicateTransaction)
		}
		return err
	}
	return nil
}

// Save persists the aggregate. The stored version must match b.Version;
// history and messages without an id are appended in the same transaction.
func (r *BookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current struct {
			Version int64
		}
		res := tx.Model(&domain.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("version").
			Where("id = ?", b.ID).
			Take(&current)
		if res.Error != nil {
			return res.Error
		}
		if current.Version != b.Version {
			return domain.ErrConcurrentUpdate
		}

		b.Version++
		if err := tx.Omit(clause.Associations).Save(b).Error; err != nil {
			b.Version--
			return err
		}
		return appendChildren(tx, b)
	})
	return mapError(err)
}

// UpdatePricing writes only the markup and quote price columns.
func (r *BookingRepository) UpdatePricing(ctx context.Context, b *domain.Booking) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]interface{}{
			"markup_percentage":    b.Markup.Percentage,
			"markup_amount":        b.Markup.Amount,
			"quote_markup_percent": b.Quote.MarkupPercent,
			"quote_markup_amount":  b.Quote.MarkupAmount,
			"quote_final_price":    b.Quote.FinalPrice,
			"payment_total_amount": b.Payment.TotalAmount,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	return r.first(ctx, "reference = ?", ref)
}

func (r *BookingRepository) GetByTransactionID(ctx context.Context, txID string) (*domain.Booking, error) {
	return r.first(ctx, "payment_gateway_transaction_id = ?", txID)
}

func (r *BookingRepository) GetBySourceReference(ctx context.Context, sourceRef string) (*domain.Booking, error) {
	return r.first(ctx, "source_reference = ?", sourceRef)
}

func (r *BookingRepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("reference = ?", ref).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListUnfrozenReferences pages through bookings whose markup still tracks the
// provider, in id order after afterID. It also returns the last id seen so the
// caller can resume from there.
func (r *BookingRepository) ListUnfrozenReferences(ctx context.Context, afterID int64, limit int) ([]string, int64, error) {
	var rows []struct {
		ID        int64
		Reference string
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select("id", "reference").
		Where("status IN ? AND markup_frozen_at IS NULL AND id > ?", unfrozenStatuses, afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, afterID, err
	}
	refs := make([]string, len(rows))
	last := afterID
	for i, row := range rows {
		refs[i] = row.Reference
		last = row.ID
	}
	return refs, last, nil
}

// ListExpiredQuoteReferences returns quote_sent bookings whose quote lapsed before now.
func (r *BookingRepository) ListExpiredQuoteReferences(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status = ? AND quote_expires_at IS NOT NULL AND quote_expires_at < ?", domain.StatusQuoteSent, now).
		Order("quote_expires_at ASC").
		Limit(limit).
		Pluck("reference", &refs).Error
	return refs, err
}

func (r *BookingRepository) first(ctx context.Context, query string, arg interface{}) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where(query, arg).
		First(&b).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func appendChildren(tx *gorm.DB, b *domain.Booking) error {
	for i := range b.History {
		h := &b.History[i]
		if h.ID != 0 {
			continue
		}
		h.BookingID = b.ID
		if err := tx.Create(h).Error; err != nil {
			return err
		}
	}
	for i := range b.Messages {
		m := &b.Messages[i]
		if m.ID != 0 {
			continue
		}
		m.BookingID = b.ID
		if err := tx.Create(m).Error; err != nil {
			return err
		}
	}
	for i := range b.Refunds {
		rf := &b.Refunds[i]
		if rf.ID != 0 {
			continue
		}
		rf.BookingID = b.ID
		if err := tx.Create(rf).Error; err != nil {
			return err
		}
	}
	return nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isUniqueConstraintError(err):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateTransaction, err)
	}
	return err
}
