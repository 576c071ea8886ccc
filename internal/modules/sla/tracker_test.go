package sla

import (
	"testing"
	"time"

	"hotelrides/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func entry(status domain.BookingStatus, after time.Duration) domain.StatusHistoryEntry {
	return domain.StatusHistoryEntry{Status: status, At: created.Add(after)}
}

func TestCompute_PendingWithoutResponse(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{entry(domain.StatusPendingQuote, 0)}, DefaultTargets())

	assert.Equal(t, domain.SLAPending, got.Status)
	assert.Nil(t, got.AcceptedAt)
	assert.Nil(t, got.ActualResponseMinutes)
	assert.Equal(t, 30, got.TargetResponseMinutes)
	assert.Equal(t, 240, got.TargetCompletionMinutes)
}

func TestCompute_LateResponseIsAtRisk(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{
		entry(domain.StatusPendingQuote, 0),
		entry(domain.StatusPaymentPending, 45*time.Minute),
	}, DefaultTargets())

	require.NotNil(t, got.ActualResponseMinutes)
	assert.Equal(t, 45, *got.ActualResponseMinutes)
	assert.False(t, *got.ResponseOnTime)
	assert.Equal(t, domain.SLAAtRisk, got.Status)
}

func TestCompute_MetOnFullLifecycle(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{
		entry(domain.StatusPendingQuote, 0),
		entry(domain.StatusPaymentPending, 10*time.Minute),
		entry(domain.StatusPaymentCompleted, 20*time.Minute),
		entry(domain.StatusServiceActive, 60*time.Minute),
		entry(domain.StatusCompleted, 120*time.Minute),
	}, DefaultTargets())

	assert.Equal(t, domain.SLAMet, got.Status)
	assert.Equal(t, 10, *got.ActualResponseMinutes)
	assert.Equal(t, 120, *got.ActualCompletionMinutes)
	assert.Equal(t, 60, *got.ActualServiceMinutes)
	assert.Equal(t, -120, got.DelayMinutes)
}

func TestCompute_MissedCompletion(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{
		entry(domain.StatusQuoteSent, 5*time.Minute),
		entry(domain.StatusServiceActive, 200*time.Minute),
		entry(domain.StatusCompleted, 300*time.Minute),
	}, DefaultTargets())

	assert.Equal(t, domain.SLAMissed, got.Status)
	assert.True(t, *got.ResponseOnTime)
	assert.False(t, *got.CompletionOnTime)
	assert.Equal(t, 60, got.DelayMinutes)
}

func TestCompute_DirectCompletionDefaultsTimestamps(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{
		entry(domain.StatusPendingQuote, 0),
		entry(domain.StatusCompleted, 90*time.Minute),
	}, DefaultTargets())

	require.NotNil(t, got.AcceptedAt)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.AcceptedAt.Equal(created))
	assert.True(t, got.StartedAt.Equal(created))
	assert.Equal(t, 0, *got.ActualResponseMinutes)
	assert.Equal(t, 90, *got.ActualServiceMinutes)
	assert.Equal(t, domain.SLAMet, got.Status)
}

func TestCompute_ClampsOutOfOrderTimestamps(t *testing.T) {
	got := Compute(created, []domain.StatusHistoryEntry{
		entry(domain.StatusPaymentPending, -5*time.Minute),
		entry(domain.StatusServiceActive, 30*time.Minute),
		entry(domain.StatusCompleted, 20*time.Minute),
	}, Targets{ResponseMinutes: 15, CompletionMinutes: 60})

	assert.False(t, got.AcceptedAt.Before(created))
	assert.False(t, got.CompletedAt.Before(*got.StartedAt))
	assert.Equal(t, 0, *got.ActualServiceMinutes)
	assert.Equal(t, 15, got.TargetResponseMinutes)
}
