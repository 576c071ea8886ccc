package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"hotelrides/internal/config"
	"hotelrides/internal/database"
	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/logger"
	"hotelrides/internal/pkg/money"
	"hotelrides/internal/repository"
)

type tariff struct {
	service string
	price   money.Cents
}

type providerSeed struct {
	provider domain.ServiceProvider
	tariffs  []tariff
}

var seeds = []providerSeed{
	{
		provider: domain.ServiceProvider{ID: "prov-nile-cars", HotelID: "hotel-cairo-1", Name: "Nile Cars", MarkupPercent: 1500},
		tariffs: []tariff{
			{service: "airport-transfer", price: 45000},
			{service: "city-tour", price: 120000},
		},
	},
	{
		provider: domain.ServiceProvider{ID: "prov-pyramids-limo", HotelID: "hotel-cairo-1", Name: "Pyramids Limousine", MarkupPercent: 2000},
		tariffs: []tariff{
			{service: "airport-transfer", price: 80000},
			{service: "pyramids-half-day", price: 150000},
		},
	},
	{
		provider: domain.ServiceProvider{ID: "prov-red-sea-shuttle", HotelID: "hotel-hurghada-1", Name: "Red Sea Shuttle", MarkupPercent: 1000},
		tariffs: []tariff{
			{service: "airport-transfer", price: 30000},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	providers := repository.NewProviderRepository(db)

	for _, s := range seeds {
		p := s.provider
		if err := providers.UpsertProvider(ctx, &p); err != nil {
			zl.Fatal("seed provider failed", zap.String("provider_id", p.ID), zap.Error(err))
		}
		for _, t := range s.tariffs {
			err := providers.UpsertTariff(ctx, &domain.ProviderTariff{
				ProviderID: p.ID,
				ServiceID:  t.service,
				BasePrice:  t.price,
				Currency:   cfg.DefaultCurrency,
			})
			if err != nil {
				zl.Fatal("seed tariff failed", zap.String("provider_id", p.ID), zap.String("service_id", t.service), zap.Error(err))
			}
		}
		zl.Info("provider seeded",
			zap.String("provider_id", p.ID),
			zap.String("markup", p.MarkupPercent.String()),
			zap.Int("tariffs", len(s.tariffs)))
	}
	zl.Info("seed completed", zap.Int("providers", len(seeds)))
}
