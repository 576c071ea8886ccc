package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/keylock"
	"hotelrides/internal/pkg/pendingorder"

	"go.uber.org/zap"
)

const TempReferencePrefix = "TMP-"

func IsTempReference(ref string) bool { return strings.HasPrefix(ref, TempReferencePrefix) }

// Result describes what one reconciliation did.
type Result struct {
	Status           domain.PaymentStatus
	Booking          *domain.Booking
	Created          bool
	AlreadyProcessed bool
	// Ignored is set when the notification was acknowledged without effect.
	Ignored bool
}

// Reconciler turns a verified notification into at most one booking
// transition, whichever delivery path it came from.
type Reconciler struct {
	gateway  *Gateway
	finder   BookingFinder
	bookings BookingPayments
	pending  pendingorder.Store
	locks    keylock.Locker
	log      *zap.Logger
}

func NewReconciler(gateway *Gateway, finder BookingFinder, bookings BookingPayments, pending pendingorder.Store, locks keylock.Locker, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{gateway: gateway, finder: finder, bookings: bookings, pending: pending, locks: locks, log: log}
}

func lockKey(key string) string { return "payment:" + key }

// Reconcile must only be called with a notification whose signature was verified.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (*Result, error) {
	key := n.Key()
	if key == "" {
		return nil, domain.NewValidationError("transactionId", "or order reference is required")
	}
	release, err := r.locks.Acquire(ctx, lockKey(key))
	if err != nil {
		return nil, err
	}
	defer release()

	status := r.gateway.MapStatus(n.Status)
	out := n.Outcome()
	log := r.log.With(
		zap.String("transaction_id", n.TransactionID),
		zap.String("order_reference", n.OrderReference),
		zap.String("status", string(status)),
	)

	b, err := r.find(ctx, n)
	if err != nil {
		return nil, err
	}

	switch n.Kind() {
	case EventRefund:
		return r.refund(ctx, n, b, log)
	case EventAuthorize:
		// funds are only held; capture arrives as a pay event
		if status == domain.PaymentCompleted {
			status = domain.PaymentProcessing
		}
	case EventPay:
	default:
		log.Warn("unhandled gateway event ignored", zap.String("event", n.Event))
		return &Result{Status: status, Booking: b, Ignored: true}, nil
	}

	if b != nil && b.Status.IsPaid() {
		log.Info("payment already processed", zap.String("booking_reference", b.Reference))
		return &Result{Status: status, Booking: b, AlreadyProcessed: true}, nil
	}

	switch status {
	case domain.PaymentCompleted:
		return r.succeed(ctx, n, out, b, log)
	case domain.PaymentFailed:
		return r.fail(ctx, n, out, b, log)
	case domain.PaymentRefunded:
		log.Warn("refunded status on a pay event ignored")
		return &Result{Status: status, Booking: b, Ignored: true}, nil
	default:
		if b == nil {
			log.Info("payment progress for unknown order")
			return &Result{Status: status}, nil
		}
		b, err = r.bookings.ApplyPaymentProgress(ctx, b.Reference, out, status)
		if err != nil {
			return nil, err
		}
		return &Result{Status: status, Booking: b}, nil
	}
}

func (r *Reconciler) succeed(ctx context.Context, n Notification, out domain.PaymentOutcome, b *domain.Booking, log *zap.Logger) (*Result, error) {
	res := &Result{Status: domain.PaymentCompleted}
	if b == nil {
		if !IsTempReference(n.OrderReference) {
			return nil, fmt.Errorf("booking %s: %w", n.OrderReference, domain.ErrNotFound)
		}
		created, dup, err := r.openPaid(ctx, n.OrderReference, out)
		if err != nil {
			return nil, err
		}
		res.Booking = created
		res.Created = !dup
		res.AlreadyProcessed = dup
	} else {
		updated, applied, err := r.bookings.ApplyPaymentSuccess(ctx, b.Reference, out)
		if err != nil {
			return nil, err
		}
		res.Booking = updated
		res.AlreadyProcessed = !applied
	}

	if out.Amount != res.Booking.AmountDue() {
		log.Warn("paid amount differs from amount due",
			zap.String("paid", out.Amount.String()),
			zap.String("due", res.Booking.AmountDue().String()))
	}
	log.Info("payment reconciled",
		zap.String("booking_reference", res.Booking.Reference),
		zap.Bool("created", res.Created),
		zap.Bool("already_processed", res.AlreadyProcessed))
	return res, nil
}

// openPaid creates the pay-first booking. The unique source reference catches
// a racing creator that took a different lock key.
func (r *Reconciler) openPaid(ctx context.Context, tempRef string, out domain.PaymentOutcome) (*domain.Booking, bool, error) {
	order, err := r.pending.Get(ctx, tempRef)
	if errors.Is(err, domain.ErrNotFound) {
		// A racing creator may have consumed the order after our lookup.
		if b, ferr := r.finder.GetBySourceReference(ctx, tempRef); ferr == nil {
			return b, true, nil
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("pending order %s: %w", tempRef, err)
	}

	b, err := r.bookings.OpenPaid(ctx, order, out)
	dup := false
	if errors.Is(err, domain.ErrDuplicateTransaction) {
		dup = true
		b, err = r.finder.GetBySourceReference(ctx, tempRef)
	}
	if err != nil {
		return nil, false, err
	}
	if err := r.pending.Delete(ctx, tempRef); err != nil {
		r.log.Warn("delete pending order", zap.String("temp_reference", tempRef), zap.Error(err))
	}
	return b, dup, nil
}

func (r *Reconciler) fail(ctx context.Context, n Notification, out domain.PaymentOutcome, b *domain.Booking, log *zap.Logger) (*Result, error) {
	reason := failureReason(n)
	res := &Result{Status: domain.PaymentFailed}
	if b == nil {
		if !IsTempReference(n.OrderReference) {
			return nil, fmt.Errorf("booking %s: %w", n.OrderReference, domain.ErrNotFound)
		}
		if err := r.pending.MarkFailed(ctx, n.OrderReference, reason); err != nil {
			return nil, fmt.Errorf("pending order %s: %w", n.OrderReference, err)
		}
		log.Info("pay-first payment failed", zap.String("reason", reason))
		return res, nil
	}

	updated, err := r.bookings.ApplyPaymentFailure(ctx, b.Reference, out, reason)
	if err != nil {
		return nil, err
	}
	res.Booking = updated
	log.Info("payment failed", zap.String("booking_reference", b.Reference), zap.String("reason", reason))
	return res, nil
}

// refund records a successful refund on a paid booking. Anything else is
// acknowledged without a transition.
func (r *Reconciler) refund(ctx context.Context, n Notification, b *domain.Booking, log *zap.Logger) (*Result, error) {
	status := r.gateway.MapStatus(n.Status)
	if status != domain.PaymentCompleted && status != domain.PaymentRefunded {
		log.Info("refund not completed, nothing to record")
		return &Result{Status: status, Booking: b, Ignored: true}, nil
	}
	if b == nil {
		log.Warn("refund for unknown order ignored")
		return &Result{Status: domain.PaymentRefunded, Ignored: true}, nil
	}
	p := b.Payment
	if p.PaidAmount <= 0 || (p.Status != domain.PaymentCompleted && p.Status != domain.PaymentRefunded) {
		log.Warn("refund for unpaid booking ignored",
			zap.String("booking_reference", b.Reference),
			zap.String("payment_status", string(p.Status)))
		return &Result{Status: domain.PaymentRefunded, Booking: b, Ignored: true}, nil
	}

	updated, applied, err := r.bookings.ApplyRefund(ctx, b.Reference, n.Refund())
	if err != nil {
		return nil, err
	}
	log.Info("refund reconciled",
		zap.String("booking_reference", updated.Reference),
		zap.String("refunded", updated.Payment.RefundedAmount.String()),
		zap.Bool("already_processed", !applied))
	return &Result{Status: domain.PaymentRefunded, Booking: updated, AlreadyProcessed: !applied}, nil
}

// find returns nil without error when nothing matches.
func (r *Reconciler) find(ctx context.Context, n Notification) (*domain.Booking, error) {
	lookups := make([]func() (*domain.Booking, error), 0, 3)
	if n.TransactionID != "" {
		lookups = append(lookups, func() (*domain.Booking, error) { return r.finder.GetByTransactionID(ctx, n.TransactionID) })
	}
	if ref := n.OrderReference; ref != "" {
		if IsTempReference(ref) {
			lookups = append(lookups, func() (*domain.Booking, error) { return r.finder.GetBySourceReference(ctx, ref) })
		} else {
			lookups = append(lookups, func() (*domain.Booking, error) { return r.finder.GetByReference(ctx, ref) })
		}
	}

	for _, lookup := range lookups {
		b, err := lookup()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func failureReason(n Notification) string {
	switch {
	case n.ResponseMessage != "" && n.ResponseCode != "":
		return n.ResponseCode + ": " + n.ResponseMessage
	case n.ResponseMessage != "":
		return n.ResponseMessage
	case n.ResponseCode != "":
		return n.ResponseCode
	}
	return "payment " + strings.ToLower(n.Status)
}
