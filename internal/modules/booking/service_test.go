package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"hotelrides/internal/database"
	"hotelrides/internal/domain"
	"hotelrides/internal/modules/quote"
	"hotelrides/internal/modules/sla"
	"hotelrides/internal/pkg/keylock"
	"hotelrides/internal/pkg/money"
	"hotelrides/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...domain.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc       *Service
	bookings  *repository.BookingRepository
	providers *repository.ProviderRepository
	publisher *recordingPublisher
	clock     *fakeClock
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:booking_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	bookings := repository.NewBookingRepository(db)
	providers := repository.NewProviderRepository(db)
	require.NoError(t, providers.UpsertProvider(context.Background(), &domain.ServiceProvider{
		ID: provider.ID, HotelID: "hotel-1", Name: "Cairo Cabs", MarkupPercent: 1000,
	}))

	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	machine := NewMachine(sla.DefaultTargets(), clock.now)
	pub := &recordingPublisher{}
	svc := NewService(
		bookings,
		providers,
		quote.NewSyncService(providers, bookings, nil),
		machine,
		keylock.NewMemory(time.Second),
		pub,
		Config{DefaultCurrency: "EGP", QuoteExpirationHours: 24},
		nil,
	)
	return &testEnv{svc: svc, bookings: bookings, providers: providers, publisher: pub, clock: clock}
}

func sampleRequest() CreateBookingRequest {
	return CreateBookingRequest{
		HotelID:        "hotel-1",
		ProviderID:     provider.ID,
		ServiceID:      "airport-transfer",
		VehicleType:    "sedan",
		ComfortClass:   "business",
		Pickup:         "Hotel lobby",
		Destination:    "CAI Terminal 3",
		ScheduledAt:    time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		PassengerCount: 2,
	}
}

func TestCreateBooking_PersistsWithReference(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TRB-20260301-[A-Z0-9]{6}$`), b.Reference)

	stored, err := env.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingQuote, stored.Status)
	assert.Equal(t, money.Percent(1000), stored.Markup.Percentage)
	assert.Equal(t, "EGP", stored.Payment.Currency)
	require.Len(t, stored.History, 1)
	assert.Equal(t, []domain.EventType{domain.EventBookingCreated}, env.publisher.types())
}

func TestCreateBooking_UnknownProvider(t *testing.T) {
	env := setupTestService(t)
	req := sampleRequest()
	req.ProviderID = "nobody"

	_, err := env.svc.CreateBooking(context.Background(), guest, req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBooking_ConcurrentReferencesAreUnique(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	const n = 10
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
			if assert.NoError(t, err) {
				refs <- b.Reference
			}
		}()
	}
	wg.Wait()
	close(refs)

	seen := map[string]bool{}
	for r := range refs {
		assert.False(t, seen[r], "duplicate reference %s", r)
		seen[r] = true
	}
	assert.Len(t, seen, n)
}

func TestMarkupDrift_BeforeQuoteUsesCurrent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 2000))

	quoted, err := env.svc.CreateQuote(ctx, b.Reference, provider, QuoteRequest{BasePrice: 10000})
	require.NoError(t, err)
	assert.Equal(t, money.Percent(2000), quoted.Quote.MarkupPercent)
	assert.Equal(t, money.Cents(2000), quoted.Quote.MarkupAmount)
	assert.Equal(t, money.Cents(12000), quoted.Quote.FinalPrice)
	assert.Equal(t, domain.StatusPaymentPending, quoted.Status)

	// frozen after the quote
	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 2500))
	got, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Percent(2000), got.Markup.Percentage)
	assert.Equal(t, money.Cents(12000), got.Quote.FinalPrice)
}

func TestMarkupDrift_TracksUntilPaymentPending(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	_, err = env.svc.SendQuote(ctx, b.Reference, provider, QuoteRequest{BasePrice: 10000})
	require.NoError(t, err)

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 2000))
	got, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(12000), got.Quote.FinalPrice)
	assert.Len(t, got.History, 2, "sync writes no history")

	// reading again is idempotent
	again, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)

	accepted, err := env.svc.AcceptQuote(ctx, b.Reference, guest)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQuoteAccepted, accepted.Status)

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 3000))
	after, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(13000), after.Quote.FinalPrice)
	assert.Nil(t, after.MarkupFrozenAt)

	pending, err := env.svc.ProceedToPayment(ctx, b.Reference, guest, domain.PaymentMethodOnline)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, pending.Status)
	assert.NotNil(t, pending.MarkupFrozenAt)

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 4000))
	frozen, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(13000), frozen.Quote.FinalPrice)
	assert.Equal(t, money.Cents(13000), frozen.AmountDue())
}

func TestIllegalTransition_NotPersisted(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)

	_, err = env.svc.Complete(ctx, b.Reference, provider)
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	stored, err := env.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingQuote, stored.Status)
	assert.Len(t, stored.History, 1)
}

func TestFullLifecycle_PersistsHistoryAndMessages(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	_, err = env.svc.CreateQuote(ctx, b.Reference, provider, QuoteRequest{BasePrice: 10000, Notes: "tolls included"})
	require.NoError(t, err)

	_, applied, err := env.svc.ApplyPaymentSuccess(ctx, b.Reference, domain.PaymentOutcome{
		TransactionID: "tx-100", OrderReference: b.Reference, Amount: 11000, Currency: "EGP",
	})
	require.NoError(t, err)
	assert.True(t, applied)

	_, applied, err = env.svc.ApplyPaymentSuccess(ctx, b.Reference, domain.PaymentOutcome{TransactionID: "tx-100", Amount: 11000})
	require.NoError(t, err)
	assert.False(t, applied, "replay is a no-op")

	_, err = env.svc.StartService(ctx, b.Reference, provider)
	require.NoError(t, err)
	_, err = env.svc.AddMessage(ctx, b.Reference, guest, "I'm at the lobby")
	require.NoError(t, err)
	env.clock.advance(45 * time.Minute)
	_, err = env.svc.Complete(ctx, b.Reference, provider)
	require.NoError(t, err)
	_, err = env.svc.SubmitFeedback(ctx, b.Reference, guest, FeedbackRequest{Rating: 5, Comment: "smooth"})
	require.NoError(t, err)

	stored, err := env.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Len(t, stored.History, 5)
	assert.Equal(t, 5, stored.Feedback.Rating)
	assert.Equal(t, domain.SLAMet, stored.SLA.Status)
	require.NotNil(t, stored.Payment.Gateway.TransactionID)
	assert.Equal(t, "tx-100", *stored.Payment.Gateway.TransactionID)

	byTx, err := env.bookings.GetByTransactionID(ctx, "tx-100")
	require.NoError(t, err)
	assert.Equal(t, b.Reference, byTx.Reference)

	var texts []string
	for _, m := range stored.Messages {
		texts = append(texts, m.Message)
	}
	assert.Contains(t, texts, "I'm at the lobby")
}

func TestExpireQuotes(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	_, err = env.svc.SendQuote(ctx, b.Reference, provider, QuoteRequest{BasePrice: 10000, ExpirationHours: 1})
	require.NoError(t, err)

	n, err := env.svc.ExpireQuotes(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	env.clock.advance(2 * time.Hour)
	n, err = env.svc.ExpireQuotes(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := env.bookings.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQuoteExpired, stored.Status)

	_, err = env.svc.AcceptQuote(ctx, b.Reference, guest)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestSyncMarkups(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	open, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	quoted, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)
	_, err = env.svc.CreateQuote(ctx, quoted.Reference, provider, QuoteRequest{BasePrice: 5000})
	require.NoError(t, err)

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 1800))
	n, err := env.svc.SyncMarkups(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := env.bookings.GetByReference(ctx, open.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Percent(1800), stored.Markup.Percentage)

	frozen, err := env.bookings.GetByReference(ctx, quoted.Reference)
	require.NoError(t, err)
	assert.Equal(t, money.Percent(1000), frozen.Markup.Percentage)
}

func TestSyncMarkups_PagesAcrossPasses(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	refs := make([]string, 3)
	for i := range refs {
		b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
		require.NoError(t, err)
		refs[i] = b.Reference
	}

	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 1800))
	n, err := env.svc.SyncMarkups(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// the next pass resumes after the first page instead of rereading it
	n, err = env.svc.SyncMarkups(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, ref := range refs {
		stored, err := env.bookings.GetByReference(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, money.Percent(1800), stored.Markup.Percentage)
	}

	// a short page wraps the cursor back to the start
	require.NoError(t, env.providers.SetMarkup(ctx, provider.ID, 2500))
	n, err = env.svc.SyncMarkups(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	first, err := env.bookings.GetByReference(ctx, refs[0])
	require.NoError(t, err)
	assert.Equal(t, money.Percent(2500), first.Markup.Percentage)
	last, err := env.bookings.GetByReference(ctx, refs[2])
	require.NoError(t, err)
	assert.Equal(t, money.Percent(1800), last.Markup.Percentage)
}

func TestGet_NotFound(t *testing.T) {
	env := setupTestService(t)
	_, err := env.svc.Get(context.Background(), "TRB-NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type blockingPublisher struct {
	entered chan struct{}
	gate    chan struct{}
}

func (p *blockingPublisher) Publish(context.Context, ...domain.BookingEvent) error {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.gate
	return nil
}

func TestMutate_ReleasesLockBeforePublishing(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	b, err := env.svc.CreateBooking(ctx, guest, sampleRequest())
	require.NoError(t, err)

	slow := &blockingPublisher{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	env.svc.publisher = slow
	env.svc.locks = keylock.NewMemory(300 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.CreateQuote(ctx, b.Reference, provider, QuoteRequest{BasePrice: 10000})
		done <- err
	}()
	<-slow.entered

	got, err := env.svc.Get(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentPending, got.Status)

	close(slow.gate)
	require.NoError(t, <-done)
}
