package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMarkupSource struct{ mock.Mock }

func (m *mockMarkupSource) CurrentMarkup(ctx context.Context, providerID string) (money.Percent, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).(money.Percent), args.Error(1)
}

type mockPricingWriter struct{ mock.Mock }

func (m *mockPricingWriter) UpdatePricing(ctx context.Context, b *domain.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func TestSync_TracksProviderBeforeQuote(t *testing.T) {
	src := new(mockMarkupSource)
	w := new(mockPricingWriter)
	svc := NewSyncService(src, w, nil)
	ctx := context.Background()

	b := &domain.Booking{Reference: "TRB-1", ProviderID: "p1", Status: domain.StatusPendingQuote, Markup: domain.Markup{Percentage: 1000}}
	src.On("CurrentMarkup", ctx, "p1").Return(money.Percent(2000), nil).Once()
	w.On("UpdatePricing", ctx, b).Return(nil).Once()

	changed, err := svc.Sync(ctx, b)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, money.Percent(2000), b.Markup.Percentage)

	// second read with unchanged registry writes nothing
	src.On("CurrentMarkup", ctx, "p1").Return(money.Percent(2000), nil).Once()
	changed, err = svc.Sync(ctx, b)
	require.NoError(t, err)
	assert.False(t, changed)

	src.AssertExpectations(t)
	w.AssertExpectations(t)
}

func TestSync_FrozenSkipsLookup(t *testing.T) {
	src := new(mockMarkupSource)
	w := new(mockPricingWriter)
	svc := NewSyncService(src, w, nil)

	frozen := time.Now()
	b := &domain.Booking{ProviderID: "p1", Status: domain.StatusPaymentPending, MarkupFrozenAt: &frozen}
	changed, err := svc.Sync(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, changed)
	src.AssertNotCalled(t, "CurrentMarkup", mock.Anything, mock.Anything)
}

func TestSync_LookupFailureKeepsMarkup(t *testing.T) {
	src := new(mockMarkupSource)
	w := new(mockPricingWriter)
	svc := NewSyncService(src, w, nil)
	ctx := context.Background()

	b := &domain.Booking{ProviderID: "p1", Status: domain.StatusPendingQuote, Markup: domain.Markup{Percentage: 1000}}
	src.On("CurrentMarkup", ctx, "p1").Return(money.Percent(0), errors.New("registry down"))

	changed, err := svc.Sync(ctx, b)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, money.Percent(1000), b.Markup.Percentage)
	w.AssertNotCalled(t, "UpdatePricing", mock.Anything, mock.Anything)
}
