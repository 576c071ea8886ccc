package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/events"
	"hotelrides/internal/pkg/keylock"

	"go.uber.org/zap"
)

var errNoChange = errors.New("booking unchanged")

const (
	referencePrefix       = "TRB"
	maxReferenceAttempts  = 5
	referenceAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceRandomLength = 6
)

type Config struct {
	DefaultCurrency      string
	QuoteExpirationHours int
}

type Service struct {
	repo      BookingRepository
	providers ProviderRegistry
	sync      MarkupSyncer
	machine   *Machine
	locks     keylock.Locker
	publisher events.Publisher
	cfg       Config
	now       func() time.Time
	log       *zap.Logger

	// last booking id visited by SyncMarkups
	syncCursor atomic.Int64
}

func NewService(
	repo BookingRepository,
	providers ProviderRegistry,
	sync MarkupSyncer,
	machine *Machine,
	locks keylock.Locker,
	publisher events.Publisher,
	cfg Config,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EGP"
	}
	return &Service{
		repo:      repo,
		providers: providers,
		sync:      sync,
		machine:   machine,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
		now:       machine.now,
		log:       log,
	}
}

func LockKey(ref string) string { return "booking:" + ref }

// CreateBooking opens a guest request in pending_quote.
func (s *Service) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	pct, err := s.providers.CurrentMarkup(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("provider_id", "unknown provider")
		}
		return nil, fmt.Errorf("lookup provider markup: %w", err)
	}

	ref, release, err := s.reserveReference(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.machine.Open(NewRequest{
		Reference:  ref,
		Kind:       domain.KindTransport,
		GuestID:    actor.ID,
		HotelID:    req.HotelID,
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		Trip:       req.Trip(),
		Currency:   s.cfg.DefaultCurrency,
		Markup:     pct,
		Notes:      req.Notes,
	}, actor)
	if err != nil {
		release()
		return nil, err
	}

	pending := b.PullEvents()
	err = s.repo.Create(ctx, b)
	release()
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.publish(ctx, pending)

	s.log.Info("transport booking created",
		zap.String("booking_reference", b.Reference),
		zap.String("guest_id", b.GuestID),
		zap.String("provider_id", b.ProviderID),
	)
	return b, nil
}

// Get returns the booking after bringing an unfrozen markup up to date.
func (s *Service) Get(ctx context.Context, ref string) (*domain.Booking, error) {
	release, err := s.locks.Acquire(ctx, LockKey(ref))
	if err != nil {
		return nil, err
	}
	defer release()

	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.sync.Sync(ctx, b); err != nil {
		return nil, fmt.Errorf("sync markup: %w", err)
	}
	return b, nil
}

func (s *Service) CreateQuote(ctx context.Context, ref string, actor domain.Actor, req QuoteRequest) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		in, err := s.quoteInput(b, req)
		if err != nil {
			return err
		}
		return s.machine.CreateQuote(b, actor, in)
	})
}

func (s *Service) SendQuote(ctx context.Context, ref string, actor domain.Actor, req QuoteRequest) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		in, err := s.quoteInput(b, req)
		if err != nil {
			return err
		}
		return s.machine.SendQuote(b, actor, in)
	})
}

func (s *Service) AcceptQuote(ctx context.Context, ref string, actor domain.Actor) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.AcceptQuote(b, actor)
	})
}

func (s *Service) RejectQuote(ctx context.Context, ref string, actor domain.Actor, reason string) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.RejectQuote(b, actor, reason)
	})
}

func (s *Service) ProceedToPayment(ctx context.Context, ref string, actor domain.Actor, method domain.PaymentMethod) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.ProceedToPayment(b, actor, method)
	})
}

func (s *Service) ConfirmCash(ctx context.Context, ref string, actor domain.Actor) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.ConfirmCash(b, actor)
	})
}

func (s *Service) StartService(ctx context.Context, ref string, actor domain.Actor) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.StartService(b, actor)
	})
}

func (s *Service) Complete(ctx context.Context, ref string, actor domain.Actor) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.Complete(b, actor)
	})
}

func (s *Service) Cancel(ctx context.Context, ref string, actor domain.Actor, reason string) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.Cancel(b, actor, reason)
	})
}

func (s *Service) AddMessage(ctx context.Context, ref string, actor domain.Actor, text string) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.AddMessage(b, actor, text)
	})
}

func (s *Service) SubmitFeedback(ctx context.Context, ref string, actor domain.Actor, req FeedbackRequest) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		if actor.Role == domain.RoleGuest && actor.ID != b.GuestID {
			return domain.NewValidationError("guest_id", "only the booking guest can leave feedback")
		}
		return s.machine.SubmitFeedback(b, actor, req.Rating, req.Comment)
	})
}

// AttachPaymentSession stores the gateway session on a payment_pending booking.
func (s *Service) AttachPaymentSession(ctx context.Context, ref string, sessionID string) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		return s.machine.AttachSession(b, sessionID)
	})
}

// ApplyPaymentSuccess marks the booking paid. A booking that already holds a
// payment is returned unchanged with applied == false.
func (s *Service) ApplyPaymentSuccess(ctx context.Context, ref string, out domain.PaymentOutcome) (*domain.Booking, bool, error) {
	applied := false
	b, err := s.mutate(ctx, ref, func(b *domain.Booking) error {
		if b.Status.IsPaid() {
			return errNoChange
		}
		applied = true
		return s.machine.MarkPaid(b, out)
	})
	if err != nil {
		return nil, false, err
	}
	return b, applied, nil
}

func (s *Service) ApplyPaymentFailure(ctx context.Context, ref string, out domain.PaymentOutcome, reason string) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		if b.Status.IsPaid() {
			return errNoChange
		}
		return s.machine.RecordPaymentFailure(b, out, reason)
	})
}

func (s *Service) ApplyPaymentProgress(ctx context.Context, ref string, out domain.PaymentOutcome, status domain.PaymentStatus) (*domain.Booking, error) {
	return s.mutate(ctx, ref, func(b *domain.Booking) error {
		if b.Status.IsPaid() {
			return errNoChange
		}
		s.machine.RecordPaymentProgress(b, out, status)
		return nil
	})
}

// ApplyRefund records a gateway refund once per refund id. A replay returns
// the booking unchanged with applied == false.
func (s *Service) ApplyRefund(ctx context.Context, ref string, r domain.RefundOutcome) (*domain.Booking, bool, error) {
	applied := false
	b, err := s.mutate(ctx, ref, func(b *domain.Booking) error {
		if b.HasRefund(r.RefundID) {
			return errNoChange
		}
		applied = true
		return s.machine.RecordRefund(b, r)
	})
	if err != nil {
		return nil, false, err
	}
	return b, applied, nil
}

// OpenPaid creates a pay-first booking from a pending order the gateway just
// reported as paid. The unique source reference and transaction id reject a
// second insert with domain.ErrDuplicateTransaction.
func (s *Service) OpenPaid(ctx context.Context, order *domain.PendingOrder, out domain.PaymentOutcome) (*domain.Booking, error) {
	ref, release, err := s.reserveReference(ctx)
	if err != nil {
		return nil, err
	}
	b, pending, err := s.openPaid(ctx, ref, order, out)
	release()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pending)
	return b, nil
}

func (s *Service) openPaid(ctx context.Context, ref string, order *domain.PendingOrder, out domain.PaymentOutcome) (*domain.Booking, []domain.BookingEvent, error) {
	guest := domain.Actor{ID: order.GuestID, Role: domain.RoleGuest}
	b, err := s.machine.Open(NewRequest{
		Reference:  ref,
		Kind:       domain.KindTransportPayFirst,
		GuestID:    order.GuestID,
		HotelID:    order.HotelID,
		ProviderID: order.ProviderID,
		ServiceID:  order.ServiceID,
		Trip:       order.Trip,
		Currency:   order.Currency,
		Markup:     order.MarkupPercent,
		Notes:      order.Notes,
	}, guest)
	if err != nil {
		return nil, nil, err
	}
	sourceRef := order.TempReference
	b.SourceReference = &sourceRef

	if err := s.machine.CreateQuote(b, domain.SystemActor, QuoteInput{
		BasePrice:       order.BasePrice,
		MarkupPercent:   order.MarkupPercent,
		ExpirationHours: s.cfg.QuoteExpirationHours,
	}); err != nil {
		return nil, nil, err
	}
	if err := s.machine.MarkPaid(b, out); err != nil {
		return nil, nil, err
	}

	pending := b.PullEvents()
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, nil, err
	}
	return b, pending, nil
}

// ExpireQuotes moves lapsed quote_sent bookings to quote_expired.
func (s *Service) ExpireQuotes(ctx context.Context, limit int) (int, error) {
	refs, err := s.repo.ListExpiredQuoteReferences(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, ref := range refs {
		_, err := s.mutate(ctx, ref, s.machine.ExpireQuote)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrStateConflict), errors.Is(err, domain.ErrValidation):
			// changed since listing
		default:
			s.log.Warn("quote expiry failed", zap.String("booking_reference", ref), zap.Error(err))
		}
	}
	return expired, nil
}

// SyncMarkups syncs the next batch of unfrozen bookings. Each call resumes
// after the last booking seen and wraps around once a short batch is read.
func (s *Service) SyncMarkups(ctx context.Context, limit int) (int, error) {
	after := s.syncCursor.Load()
	refs, last, err := s.repo.ListUnfrozenReferences(ctx, after, limit)
	if err != nil {
		return 0, err
	}
	if len(refs) < limit {
		last = 0
	}
	s.syncCursor.CompareAndSwap(after, last)
	updated := 0
	for _, ref := range refs {
		changed, err := s.syncOne(ctx, ref)
		if err != nil {
			s.log.Warn("markup reconciliation failed", zap.String("booking_reference", ref), zap.Error(err))
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

func (s *Service) syncOne(ctx context.Context, ref string) (bool, error) {
	release, err := s.locks.Acquire(ctx, LockKey(ref))
	if err != nil {
		return false, err
	}
	defer release()

	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return false, err
	}
	return s.sync.Sync(ctx, b)
}

// mutate runs op on a freshly loaded booking under the booking lock and saves
// the result. The markup is synced first so an accepted or quoted price is the
// one the guest sees. Recorded events are published after the lock is released.
func (s *Service) mutate(ctx context.Context, ref string, op func(*domain.Booking) error) (*domain.Booking, error) {
	b, pending, err := s.mutateLocked(ctx, ref, op)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pending)
	return b, nil
}

func (s *Service) mutateLocked(ctx context.Context, ref string, op func(*domain.Booking) error) (*domain.Booking, []domain.BookingEvent, error) {
	release, err := s.locks.Acquire(ctx, LockKey(ref))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	b, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.sync.Sync(ctx, b); err != nil {
		return nil, nil, fmt.Errorf("sync markup: %w", err)
	}

	if err := op(b); err != nil {
		if errors.Is(err, errNoChange) {
			return b, nil, nil
		}
		return nil, nil, err
	}

	pending := b.PullEvents()
	if err := s.repo.Save(ctx, b); err != nil {
		return nil, nil, fmt.Errorf("save booking %s: %w", ref, err)
	}
	return b, pending, nil
}

func (s *Service) publish(ctx context.Context, evts []domain.BookingEvent) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.log.Warn("booking event publish failed",
			zap.String("booking_reference", evts[0].BookingReference),
			zap.Int("events", len(evts)),
			zap.Error(err),
		)
	}
}

func (s *Service) quoteInput(b *domain.Booking, req QuoteRequest) (QuoteInput, error) {
	if req.BasePrice.IsNegative() {
		return QuoteInput{}, domain.NewValidationError("base_price", "must not be negative")
	}
	hours := req.ExpirationHours
	if hours == 0 {
		hours = s.cfg.QuoteExpirationHours
	}
	// b was synced by mutate, so its markup is the provider's current one
	return QuoteInput{
		BasePrice:       req.BasePrice,
		MarkupPercent:   b.Markup.Percentage,
		Notes:           req.Notes,
		ExpirationHours: hours,
	}, nil
}

// reserveReference returns an unused reference while holding its lock so no
// concurrent request can claim the same candidate before the insert.
func (s *Service) reserveReference(ctx context.Context) (string, func(), error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		candidate, err := newReference(s.now())
		if err != nil {
			return "", nil, err
		}
		release, err := s.locks.Acquire(ctx, "ref:"+candidate)
		if err != nil {
			return "", nil, err
		}
		exists, err := s.repo.ReferenceExists(ctx, candidate)
		if err != nil {
			release()
			return "", nil, err
		}
		if !exists {
			return candidate, release, nil
		}
		release()
	}

	fallback := fmt.Sprintf("%s-%d", referencePrefix, s.now().UnixNano())
	s.log.Warn("booking reference collisions exhausted, using timestamp reference", zap.String("reference", fallback))
	release, err := s.locks.Acquire(ctx, "ref:"+fallback)
	if err != nil {
		return "", nil, err
	}
	return fallback, release, nil
}

func newReference(now time.Time) (string, error) {
	random := make([]byte, referenceRandomLength)
	for i := range random {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", err
		}
		random[i] = referenceAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", referencePrefix, now.Format("20060102"), random), nil
}
