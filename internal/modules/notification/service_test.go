package notification

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"hotelrides/internal/database"
	"hotelrides/internal/domain"
	"hotelrides/internal/events"
	"hotelrides/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc     *Service
	loyalty *repository.LoyaltyRepository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:notif_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	loyalty := repository.NewLoyaltyRepository(db)
	svc := NewService(
		repository.NewNotificationRepository(db),
		StaticDirectory{"guest-1": {Name: "Mona", Channel: "whatsapp"}},
		loyalty,
		nil,
	)
	return &testEnv{svc: svc, loyalty: loyalty}
}

func event(typ domain.EventType, from, to domain.BookingStatus, actor domain.Actor) domain.BookingEvent {
	return domain.BookingEvent{
		ID:               "evt",
		Type:             typ,
		BookingReference: "TRB-20260301-ABC123",
		GuestID:          "guest-1",
		HotelID:          "hotel-1",
		ProviderID:       "prov-1",
		From:             from,
		To:               to,
		Actor:            actor,
		Amount:           11550,
		Currency:         "EGP",
		At:               time.Now(),
	}
}

func TestHandleEvent_RoutesToCounterparty(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	guest := domain.Actor{ID: "guest-1", Role: domain.RoleGuest}
	provider := domain.Actor{ID: "prov-1", Role: domain.RoleProvider}

	env.svc.HandleEvent(ctx, event(domain.EventBookingCreated, "", domain.StatusPendingQuote, guest))
	env.svc.HandleEvent(ctx, event(domain.EventStatusChanged, domain.StatusPendingQuote, domain.StatusPaymentPending, provider))

	list, unread, err := env.svc.List(ctx, "prov-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, unread)
	assert.Equal(t, domain.NotifBookingRequested, list[0].Type)
	assert.Contains(t, list[0].Body, "Mona")

	list, _, err = env.svc.List(ctx, "guest-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotifQuoteReady, list[0].Type)
	assert.Contains(t, list[0].Body, "115.50 EGP")
}

func TestHandleEvent_PayFirstQuoteIsSilent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.svc.HandleEvent(ctx, event(domain.EventStatusChanged, domain.StatusPendingQuote, domain.StatusPaymentPending, domain.SystemActor))
	list, _, err := env.svc.List(ctx, "guest-1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandleEvent_CancelledBySystemNotifiesBoth(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	e := event(domain.EventStatusChanged, domain.StatusQuoteSent, domain.StatusCancelled, domain.SystemActor)
	e.Note = "provider unavailable"
	env.svc.HandleEvent(ctx, e)

	for _, id := range []string{"guest-1", "prov-1"} {
		list, _, err := env.svc.List(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, list, 1, id)
		assert.Contains(t, list[0].Body, "provider unavailable")
	}
}

func TestHandleEvent_CompletionAccruesOnce(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	provider := domain.Actor{ID: "prov-1", Role: domain.RoleProvider}

	e := event(domain.EventStatusChanged, domain.StatusServiceActive, domain.StatusCompleted, provider)
	env.svc.HandleEvent(ctx, e)
	env.svc.HandleEvent(ctx, e)

	points, err := env.loyalty.Balance(ctx, "guest-1")
	require.NoError(t, err)
	assert.EqualValues(t, 115, points)
}

func TestMarkAsRead(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.svc.HandleEvent(ctx, event(domain.EventPaymentFailed, domain.StatusPaymentPending, domain.StatusPaymentPending, domain.GatewayActor))

	list, unread, err := env.svc.List(ctx, "guest-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, unread)

	assert.ErrorIs(t, env.svc.MarkAsRead(ctx, list[0].ID, "prov-1"), domain.ErrNotFound)
	require.NoError(t, env.svc.MarkAsRead(ctx, list[0].ID, "guest-1"))

	_, unread, err = env.svc.List(ctx, "guest-1", 10)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestSubscribe_ReceivesBusEvents(t *testing.T) {
	env := setup(t)
	bus := events.NewBus(nil)
	env.svc.Subscribe(bus)

	guest := domain.Actor{ID: "guest-1", Role: domain.RoleGuest}
	e := event(domain.EventMessageAppended, domain.StatusPaymentPending, domain.StatusPaymentPending, guest)
	e.Note = "I have two suitcases"
	require.NoError(t, bus.Publish(context.Background(), e))
	bus.Wait()

	list, _, err := env.svc.List(context.Background(), "prov-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotifNewMessage, list[0].Type)
	assert.Equal(t, "I have two suitcases", list[0].Body)
}

func TestHandleEvent_RefundNotifiesGuestOnly(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	e := event(domain.EventPaymentRefunded, domain.StatusPaymentCompleted, domain.StatusPaymentCompleted, domain.GatewayActor)
	e.Amount = 1500
	env.svc.HandleEvent(ctx, e)

	list, _, err := env.svc.List(ctx, "guest-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotifPaymentRefunded, list[0].Type)
	assert.Contains(t, list[0].Body, "15.00 EGP")

	list, _, err = env.svc.List(ctx, "prov-1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
