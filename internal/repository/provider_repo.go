package repository

import (
	"context"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProviderRepository serves the provider registry lookups this core needs.
type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) CurrentMarkup(ctx context.Context, providerID string) (money.Percent, error) {
	var p domain.ServiceProvider
	if err := r.db.WithContext(ctx).Select("markup_percent").Where("id = ?", providerID).First(&p).Error; err != nil {
		return 0, mapError(err)
	}
	return p.MarkupPercent, nil
}

func (r *ProviderRepository) Tariff(ctx context.Context, providerID, serviceID string) (*domain.ProviderTariff, error) {
	var t domain.ProviderTariff
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND service_id = ?", providerID, serviceID).
		First(&t).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// UpsertProvider is used by the seed command and tests.
func (r *ProviderRepository) UpsertProvider(ctx context.Context, p *domain.ServiceProvider) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"hotel_id", "name", "markup_percent", "updated_at"}),
	}).Create(p).Error
}

func (r *ProviderRepository) UpsertTariff(ctx context.Context, t *domain.ProviderTariff) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_id"}, {Name: "service_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_price", "currency"}),
	}).Create(t).Error
}

func (r *ProviderRepository) SetMarkup(ctx context.Context, providerID string, pct money.Percent) error {
	res := r.db.WithContext(ctx).Model(&domain.ServiceProvider{}).Where("id = ?", providerID).Update("markup_percent", pct)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
