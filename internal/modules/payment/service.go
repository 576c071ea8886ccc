package payment

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/modules/quote"
	"hotelrides/internal/pkg/pendingorder"
	"hotelrides/internal/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	gateway    *Gateway
	bookings   BookingPayments
	tariffs    TariffSource
	pending    pendingorder.Store
	reconciler *Reconciler
	currency   string
	now        func() time.Time
	log        *zap.Logger
}

func NewService(gateway *Gateway, bookings BookingPayments, tariffs TariffSource, pending pendingorder.Store, reconciler *Reconciler, defaultCurrency string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultCurrency == "" {
		defaultCurrency = "EGP"
	}
	return &Service{
		gateway:    gateway,
		bookings:   bookings,
		tariffs:    tariffs,
		pending:    pending,
		reconciler: reconciler,
		currency:   defaultCurrency,
		now:        time.Now,
		log:        log,
	}
}

// StartSession opens a hosted payment session for a quoted booking.
func (s *Service) StartSession(ctx context.Context, ref string, actor domain.Actor) (*SessionResponse, error) {
	b, err := s.bookings.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.GuestID != actor.ID {
		return nil, fmt.Errorf("booking %s: %w", ref, domain.ErrNotFound)
	}
	if b.Status != domain.StatusPaymentPending {
		return nil, &domain.StateConflictError{Current: b.Status, Requested: domain.StatusPaymentPending, Operation: "start online payment"}
	}

	session, err := s.gateway.NewSession(b)
	if err != nil {
		return nil, err
	}
	b, err = s.bookings.AttachPaymentSession(ctx, ref, session.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment session opened",
		zap.String("booking_reference", ref),
		zap.String("session_id", session.ID),
		zap.String("amount", session.Amount))
	return &SessionResponse{Session: session, Booking: b}, nil
}

// Checkout prices a pay-first order from the provider tariff and parks it in
// the pending store until the gateway reports an outcome.
func (s *Service) Checkout(ctx context.Context, actor domain.Actor, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.ServiceID == "" {
		return nil, domain.NewValidationError("service_id", "is required for checkout")
	}
	tariff, err := s.tariffs.Tariff(ctx, req.ProviderID, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("tariff %s/%s: %w", req.ProviderID, req.ServiceID, err)
	}
	pct, err := s.tariffs.CurrentMarkup(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("provider %s markup: %w", req.ProviderID, err)
	}
	br, err := quote.Compute(tariff.BasePrice, pct)
	if err != nil {
		return nil, err
	}

	currency := tariff.Currency
	if currency == "" {
		currency = s.currency
	}
	order := &domain.PendingOrder{
		TempReference: TempReferencePrefix + uuid.NewString(),
		GuestID:       actor.ID,
		HotelID:       req.HotelID,
		ProviderID:    req.ProviderID,
		ServiceID:     req.ServiceID,
		Trip:          req.Trip(),
		BasePrice:     br.Base,
		MarkupPercent: br.MarkupPercent,
		MarkupAmount:  br.MarkupAmount,
		FinalPrice:    br.Final,
		Currency:      currency,
		Notes:         req.Notes,
		Status:        domain.PendingOrderAwaitingPayment,
		CreatedAt:     s.now().UTC(),
	}
	if err := validator.Check(order); err != nil {
		return nil, err
	}

	session, err := s.gateway.NewSession(order)
	if err != nil {
		return nil, err
	}
	if err := s.pending.Put(ctx, order); err != nil {
		return nil, fmt.Errorf("store pending order: %w", err)
	}
	s.log.Info("pay-first checkout opened",
		zap.String("temp_reference", order.TempReference),
		zap.String("provider_id", order.ProviderID),
		zap.String("amount", session.Amount))
	return &CheckoutResponse{Order: order, Session: session}, nil
}

// HandleWebhook verifies and reconciles a server-to-server notification.
func (s *Service) HandleWebhook(ctx context.Context, n Notification, signature string) (*Result, error) {
	if err := s.gateway.VerifyWebhook(n, signature); err != nil {
		return nil, err
	}
	return s.reconcile(ctx, n)
}

// HandleRedirect verifies and reconciles the browser return.
func (s *Service) HandleRedirect(ctx context.Context, q url.Values) (*Result, Notification, error) {
	n := ParseRedirect(q)
	if err := s.gateway.VerifyRedirect(q); err != nil {
		return nil, n, err
	}
	res, err := s.reconcile(ctx, n)
	return res, n, err
}

const (
	reconcileAttempts = 3
	reconcileBackoff  = 100 * time.Millisecond
)

// reconcile retries transient failures. Reconciliation is idempotent by
// transaction id, so a retry never double-applies.
func (s *Service) reconcile(ctx context.Context, n Notification) (*Result, error) {
	var lastErr error
	wait := reconcileBackoff
	for attempt := 1; attempt <= reconcileAttempts; attempt++ {
		res, err := s.reconciler.Reconcile(ctx, n)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !domain.IsRetryable(err) || attempt == reconcileAttempts {
			break
		}
		s.log.Warn("reconcile attempt failed",
			zap.Int("attempt", attempt),
			zap.String("key", n.Key()),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, lastErr
}
