package payment

import (
	"context"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"
)

// BookingFinder resolves the booking a notification refers to.
type BookingFinder interface {
	GetByTransactionID(ctx context.Context, txID string) (*domain.Booking, error)
	GetByReference(ctx context.Context, ref string) (*domain.Booking, error)
	GetBySourceReference(ctx context.Context, sourceRef string) (*domain.Booking, error)
}

// BookingPayments is the slice of the booking service that payment drives.
type BookingPayments interface {
	Get(ctx context.Context, ref string) (*domain.Booking, error)
	AttachPaymentSession(ctx context.Context, ref string, sessionID string) (*domain.Booking, error)
	ApplyPaymentSuccess(ctx context.Context, ref string, out domain.PaymentOutcome) (*domain.Booking, bool, error)
	ApplyPaymentFailure(ctx context.Context, ref string, out domain.PaymentOutcome, reason string) (*domain.Booking, error)
	ApplyPaymentProgress(ctx context.Context, ref string, out domain.PaymentOutcome, status domain.PaymentStatus) (*domain.Booking, error)
	ApplyRefund(ctx context.Context, ref string, r domain.RefundOutcome) (*domain.Booking, bool, error)
	OpenPaid(ctx context.Context, order *domain.PendingOrder, out domain.PaymentOutcome) (*domain.Booking, error)
}

// TariffSource prices pay-first orders.
type TariffSource interface {
	Tariff(ctx context.Context, providerID, serviceID string) (*domain.ProviderTariff, error)
	CurrentMarkup(ctx context.Context, providerID string) (money.Percent, error)
}
