package domain

import "fmt"

// BookingStatus is the wire-level lifecycle state of a transport booking.
type BookingStatus string

const (
	StatusPendingQuote     BookingStatus = "pending_quote"
	StatusQuoteSent        BookingStatus = "quote_sent"
	StatusQuoteAccepted    BookingStatus = "quote_accepted"
	StatusPaymentPending   BookingStatus = "payment_pending"
	StatusConfirmed        BookingStatus = "confirmed"
	StatusPaymentCompleted BookingStatus = "payment_completed"
	StatusServiceActive    BookingStatus = "service_active"
	StatusCompleted        BookingStatus = "completed"
	StatusCancelled        BookingStatus = "cancelled"
	StatusQuoteRejected    BookingStatus = "quote_rejected"
	StatusQuoteExpired     BookingStatus = "quote_expired"
)

// validTransitions is the complete lifecycle graph. Anything not listed is a conflict.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPendingQuote:     {StatusQuoteSent, StatusPaymentPending, StatusCancelled},
	StatusQuoteSent:        {StatusQuoteAccepted, StatusQuoteRejected, StatusQuoteExpired, StatusCancelled},
	StatusQuoteAccepted:    {StatusPaymentPending, StatusCancelled},
	StatusPaymentPending:   {StatusPaymentCompleted, StatusConfirmed, StatusCancelled},
	StatusPaymentCompleted: {StatusServiceActive},
	StatusConfirmed:        {StatusServiceActive},
	StatusServiceActive:    {StatusCompleted},
	StatusCompleted:        {},
	StatusCancelled:        {},
	StatusQuoteRejected:    {},
	StatusQuoteExpired:     {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s BookingStatus) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return !ok || len(allowed) == 0
}

func (s BookingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// IsPaid reports whether a gateway success has already been applied.
func (s BookingStatus) IsPaid() bool {
	switch s {
	case StatusPaymentCompleted, StatusServiceActive, StatusCompleted:
		return true
	}
	return false
}

// FreezesMarkup reports whether the markup percentage is locked in this state.
func (s BookingStatus) FreezesMarkup() bool {
	switch s {
	case StatusPendingQuote, StatusQuoteSent, StatusQuoteAccepted:
		return false
	}
	return true
}

func (s BookingStatus) String() string { return string(s) }

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
