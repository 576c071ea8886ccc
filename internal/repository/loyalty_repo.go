package repository

import (
	"context"

	"hotelrides/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoyaltyRepository struct {
	db *gorm.DB
}

func NewLoyaltyRepository(db *gorm.DB) *LoyaltyRepository {
	return &LoyaltyRepository{db: db}
}

// Accrue is a no-op when the booking was already credited.
func (r *LoyaltyRepository) Accrue(ctx context.Context, a *domain.LoyaltyAccrual) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "booking_reference"}}, DoNothing: true}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *LoyaltyRepository) Balance(ctx context.Context, guestID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.LoyaltyAccrual{}).
		Where("guest_id = ?", guestID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}
