package pendingorder

import (
	"context"
	"testing"
	"time"

	"hotelrides/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetDelete(t *testing.T) {
	s := NewMemory(time.Minute)
	ctx := context.Background()

	o := &domain.PendingOrder{TempReference: "TMP-1", GuestID: "g1", FinalPrice: 11500, Status: domain.PendingOrderAwaitingPayment}
	require.NoError(t, s.Put(ctx, o))

	got, err := s.Get(ctx, "TMP-1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GuestID)

	// callers get a copy
	got.GuestID = "changed"
	again, _ := s.Get(ctx, "TMP-1")
	assert.Equal(t, "g1", again.GuestID)

	require.NoError(t, s.Delete(ctx, "TMP-1"))
	_, err = s.Get(ctx, "TMP-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemory_MarkFailed(t *testing.T) {
	s := NewMemory(time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &domain.PendingOrder{TempReference: "TMP-2", Status: domain.PendingOrderAwaitingPayment}))

	require.NoError(t, s.MarkFailed(ctx, "TMP-2", "card declined"))
	got, err := s.Get(ctx, "TMP-2")
	require.NoError(t, err)
	assert.Equal(t, domain.PendingOrderFailed, got.Status)
	assert.Equal(t, "card declined", got.FailureReason)

	assert.ErrorIs(t, s.MarkFailed(ctx, "missing", "x"), domain.ErrNotFound)
}

func TestMemory_Expires(t *testing.T) {
	s := NewMemory(20 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &domain.PendingOrder{TempReference: "TMP-3"}))

	time.Sleep(40 * time.Millisecond)
	_, err := s.Get(ctx, "TMP-3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
