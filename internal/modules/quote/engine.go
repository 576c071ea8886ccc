// Package quote computes transport prices from a provider base price and the
// hotel's markup percentage.
package quote

import (
	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"
)

// Breakdown is the result of a price computation. Final == Base + MarkupAmount.
type Breakdown struct {
	Base          money.Cents
	MarkupPercent money.Percent
	MarkupAmount  money.Cents
	Final         money.Cents
}

// Compute applies pct to base. Amounts are rounded half-up to whole cents.
func Compute(base money.Cents, pct money.Percent) (Breakdown, error) {
	if base.IsNegative() {
		return Breakdown{}, domain.NewValidationError("base_price", "must not be negative")
	}
	if pct < 0 {
		return Breakdown{}, domain.NewValidationError("markup_percentage", "must not be negative")
	}
	amount := pct.Of(base)
	return Breakdown{
		Base:          base,
		MarkupPercent: pct,
		MarkupAmount:  amount,
		Final:         base + amount,
	}, nil
}

// ApplyMarkup moves an unfrozen booking to pct. It reports whether anything
// changed. Frozen bookings are never touched.
func ApplyMarkup(b *domain.Booking, pct money.Percent) bool {
	if b.IsMarkupFrozen() || pct < 0 || b.Markup.Percentage == pct {
		return false
	}

	b.Markup.Percentage = pct
	b.Markup.Amount = pct.Of(b.Quote.BasePrice)

	if b.Quote.Exists() {
		b.Quote.MarkupPercent = pct
		b.Quote.MarkupAmount = b.Markup.Amount
		b.Quote.FinalPrice = b.Quote.BasePrice + b.Markup.Amount
		b.Payment.TotalAmount = b.Quote.FinalPrice
	}
	return true
}
