package booking

import (
	"fmt"
	"strings"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/modules/quote"
	"hotelrides/internal/modules/sla"
	"hotelrides/internal/pkg/money"

	"github.com/google/uuid"
)

const defaultQuoteExpirationHours = 24

// Machine applies lifecycle operations to an in-memory booking. It never
// touches storage; the service persists the result under the booking lock.
//
// Every successful transition appends one history entry, records one event
// and recomputes the SLA. A rejected operation leaves the booking unchanged.
type Machine struct {
	now     func() time.Time
	targets sla.Targets
}

func NewMachine(targets sla.Targets, now func() time.Time) *Machine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Machine{now: now, targets: targets}
}

// NewRequest is the guest's ride request.
type NewRequest struct {
	Reference  string
	Kind       domain.BookingKind
	GuestID    string
	HotelID    string
	ProviderID string
	ServiceID  string
	Trip       domain.Trip
	Currency   string
	Markup     money.Percent
	Notes      string
}

// Open builds a booking in pending_quote.
func (m *Machine) Open(req NewRequest, actor domain.Actor) (*domain.Booking, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.KindTransport
	}

	now := m.now()
	b := &domain.Booking{
		Reference:  req.Reference,
		Kind:       kind,
		GuestID:    req.GuestID,
		HotelID:    req.HotelID,
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		Trip:       req.Trip,
		Status:     domain.StatusPendingQuote,
		Markup:     domain.Markup{Percentage: req.Markup},
		Payment: domain.Payment{
			Status:   domain.PaymentPending,
			Currency: req.Currency,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.History = append(b.History, historyEntry(domain.StatusPendingQuote, now, actor, false))
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		b.Messages = append(b.Messages, message(actor.Role, notes, domain.MessageText, now))
	}
	b.SLA = sla.Compute(b.CreatedAt, b.History, m.targets)
	b.RecordEvent(m.event(b, domain.EventBookingCreated, "", domain.StatusPendingQuote, actor, false, ""))
	return b, nil
}

// QuoteInput is the provider's price for a pending request.
type QuoteInput struct {
	BasePrice       money.Cents
	MarkupPercent   money.Percent
	Notes           string
	ExpirationHours int
}

// CreateQuote is the fast path: the guest is sent straight to payment and the
// markup is frozen.
func (m *Machine) CreateQuote(b *domain.Booking, actor domain.Actor, in QuoteInput) error {
	if err := m.ensure(b, domain.StatusPaymentPending, "create quote"); err != nil {
		return err
	}
	now := m.now()
	if err := m.issueQuote(b, in, now); err != nil {
		return err
	}
	b.MarkupFrozenAt = &now
	b.Messages = append(b.Messages, message(actor.Role, quoteMessage(b), domain.MessageQuote, now))
	m.apply(b, domain.StatusPaymentPending, actor, false, now, "")
	return nil
}

// SendQuote is the negotiated path. Markup keeps tracking the provider until
// the guest proceeds to payment.
func (m *Machine) SendQuote(b *domain.Booking, actor domain.Actor, in QuoteInput) error {
	if err := m.ensure(b, domain.StatusQuoteSent, "send quote"); err != nil {
		return err
	}
	now := m.now()
	if err := m.issueQuote(b, in, now); err != nil {
		return err
	}
	b.Messages = append(b.Messages, message(actor.Role, quoteMessage(b), domain.MessageQuote, now))
	m.apply(b, domain.StatusQuoteSent, actor, false, now, "")
	return nil
}

func (m *Machine) AcceptQuote(b *domain.Booking, actor domain.Actor) error {
	if err := m.ensure(b, domain.StatusQuoteAccepted, "accept quote"); err != nil {
		return err
	}
	now := m.now()
	if b.Quote.ExpiredAt(now) {
		return fmt.Errorf("booking %s: %w", b.Reference, domain.ErrQuoteExpired)
	}
	m.apply(b, domain.StatusQuoteAccepted, actor, false, now, "")
	return nil
}

func (m *Machine) RejectQuote(b *domain.Booking, actor domain.Actor, reason string) error {
	if err := m.ensure(b, domain.StatusQuoteRejected, "reject quote"); err != nil {
		return err
	}
	now := m.now()
	text := "Quote rejected"
	if r := strings.TrimSpace(reason); r != "" {
		text += ": " + r
	}
	b.Messages = append(b.Messages, message(actor.Role, text, domain.MessageStatusUpdate, now))
	m.apply(b, domain.StatusQuoteRejected, actor, false, now, reason)
	return nil
}

// ExpireQuote is run by the sweeper once the quote's validity window has passed.
func (m *Machine) ExpireQuote(b *domain.Booking) error {
	if err := m.ensure(b, domain.StatusQuoteExpired, "expire quote"); err != nil {
		return err
	}
	now := m.now()
	if !b.Quote.ExpiredAt(now) {
		return domain.NewValidationError("quote", "has not expired yet")
	}
	b.Messages = append(b.Messages, message(domain.RoleSystem, "Quote expired", domain.MessageStatusUpdate, now))
	m.apply(b, domain.StatusQuoteExpired, domain.SystemActor, true, now, "")
	return nil
}

// ProceedToPayment records the guest's payment method after accepting a quote.
func (m *Machine) ProceedToPayment(b *domain.Booking, actor domain.Actor, method domain.PaymentMethod) error {
	if !method.IsValid() {
		return domain.NewValidationError("payment_method", "must be online or cash")
	}
	if err := m.ensure(b, domain.StatusPaymentPending, "proceed to payment"); err != nil {
		return err
	}
	now := m.now()
	b.Payment.Method = method
	b.Payment.Status = domain.PaymentPending
	if b.MarkupFrozenAt == nil {
		b.MarkupFrozenAt = &now
	}
	m.apply(b, domain.StatusPaymentPending, actor, false, now, "")
	return nil
}

// ConfirmCash confirms a booking that will be paid in cash on pickup.
func (m *Machine) ConfirmCash(b *domain.Booking, actor domain.Actor) error {
	if err := m.ensure(b, domain.StatusConfirmed, "confirm cash booking"); err != nil {
		return err
	}
	now := m.now()
	b.Payment.Method = domain.PaymentMethodCash
	b.Payment.ProviderEarnings = b.Quote.BasePrice
	b.Payment.HotelCommission = b.Quote.MarkupAmount
	b.Messages = append(b.Messages, message(actor.Role, "Booking confirmed, payment in cash", domain.MessageStatusUpdate, now))
	m.apply(b, domain.StatusConfirmed, actor, false, now, "")
	return nil
}

// MarkPaid applies a successful gateway outcome.
func (m *Machine) MarkPaid(b *domain.Booking, out domain.PaymentOutcome) error {
	if out.Amount.IsNegative() {
		return domain.NewValidationError("amount", "must not be negative")
	}
	if err := m.ensure(b, domain.StatusPaymentCompleted, "mark paid"); err != nil {
		return err
	}
	now := m.now()
	paidAt := out.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	p := &b.Payment
	p.Method = domain.PaymentMethodOnline
	p.Status = domain.PaymentCompleted
	p.PaidAmount = out.Amount
	if p.TotalAmount == 0 {
		p.TotalAmount = b.Quote.FinalPrice
	}
	if out.Currency != "" {
		p.Currency = out.Currency
	}
	p.PaidAt = &paidAt
	p.ProviderEarnings = b.Quote.BasePrice
	p.HotelCommission = b.Quote.MarkupAmount
	applyGateway(&p.Gateway, out)
	p.Gateway.FailureReason = ""

	text := fmt.Sprintf("Payment of %s %s received", out.Amount, p.Currency)
	b.Messages = append(b.Messages, message(domain.RoleGateway, text, domain.MessagePayment, now))
	m.apply(b, domain.StatusPaymentCompleted, domain.GatewayActor, true, now, "")
	return nil
}

// RecordPaymentFailure keeps the booking in payment_pending so the guest can retry.
func (m *Machine) RecordPaymentFailure(b *domain.Booking, out domain.PaymentOutcome, reason string) error {
	if b.Status != domain.StatusPaymentPending {
		return &domain.StateConflictError{Current: b.Status, Requested: domain.StatusPaymentPending, Operation: "record payment failure"}
	}
	now := m.now()
	p := &b.Payment
	p.Status = domain.PaymentFailed
	applyGateway(&p.Gateway, out)
	p.Gateway.FailureReason = reason

	text := "Payment failed"
	if reason != "" {
		text += ": " + reason
	}
	b.Messages = append(b.Messages, message(domain.RoleGateway, text, domain.MessagePayment, now))
	b.UpdatedAt = now
	b.RecordEvent(m.event(b, domain.EventPaymentFailed, b.Status, b.Status, domain.GatewayActor, true, reason))
	return nil
}

// AttachSession records the hosted payment session opened for the guest.
func (m *Machine) AttachSession(b *domain.Booking, sessionID string) error {
	if b.Status != domain.StatusPaymentPending {
		return &domain.StateConflictError{Current: b.Status, Requested: domain.StatusPaymentPending, Operation: "start online payment"}
	}
	if b.Quote.FinalPrice <= 0 {
		return domain.NewValidationError("final_price", "nothing to pay")
	}
	b.Payment.Method = domain.PaymentMethodOnline
	b.Payment.Status = domain.PaymentPending
	b.Payment.Gateway.SessionID = sessionID
	b.Payment.Gateway.OrderReference = b.Reference
	b.UpdatedAt = m.now()
	return nil
}

// RecordRefund books a gateway refund against an online payment. The booking
// status is not changed; the payment is marked refunded once nothing is left.
func (m *Machine) RecordRefund(b *domain.Booking, r domain.RefundOutcome) error {
	if r.RefundID == "" {
		return domain.NewValidationError("refund_id", "is required")
	}
	if r.Amount <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	p := &b.Payment
	if p.PaidAmount <= 0 || (p.Status != domain.PaymentCompleted && p.Status != domain.PaymentRefunded) {
		return &domain.StateConflictError{Current: b.Status, Requested: b.Status, Operation: "record refund"}
	}
	now := m.now()
	at := r.At
	if at.IsZero() {
		at = now
	}
	amount := r.Amount
	if remaining := p.PaidAmount - p.RefundedAmount; amount > remaining {
		amount = remaining
	}
	currency := r.Currency
	if currency == "" {
		currency = p.Currency
	}

	b.Refunds = append(b.Refunds, domain.PaymentRefund{RefundID: r.RefundID, Amount: amount, Currency: currency, At: at})
	p.RefundedAmount += amount
	if p.RefundedAmount >= p.PaidAmount {
		p.Status = domain.PaymentRefunded
	}
	if r.RawPayload != "" {
		p.Gateway.RawPayload = r.RawPayload
	}

	text := fmt.Sprintf("Refund of %s %s processed", amount, currency)
	b.Messages = append(b.Messages, message(domain.RoleGateway, text, domain.MessagePayment, now))
	b.UpdatedAt = now
	e := m.event(b, domain.EventPaymentRefunded, b.Status, b.Status, domain.GatewayActor, true, "")
	e.Amount = amount
	e.Currency = currency
	b.RecordEvent(e)
	return nil
}

// RecordPaymentProgress stores a non-terminal gateway notification without a transition.
func (m *Machine) RecordPaymentProgress(b *domain.Booking, out domain.PaymentOutcome, status domain.PaymentStatus) {
	if b.Status.IsPaid() {
		return
	}
	if status == domain.PaymentProcessing {
		b.Payment.Status = domain.PaymentProcessing
	}
	applyGateway(&b.Payment.Gateway, out)
	b.UpdatedAt = m.now()
}

func (m *Machine) StartService(b *domain.Booking, actor domain.Actor) error {
	if err := m.ensure(b, domain.StatusServiceActive, "start service"); err != nil {
		return err
	}
	now := m.now()
	b.Messages = append(b.Messages, message(actor.Role, "Trip started", domain.MessageStatusUpdate, now))
	m.apply(b, domain.StatusServiceActive, actor, false, now, "")
	return nil
}

func (m *Machine) Complete(b *domain.Booking, actor domain.Actor) error {
	if err := m.ensure(b, domain.StatusCompleted, "complete"); err != nil {
		return err
	}
	now := m.now()
	b.Messages = append(b.Messages, message(actor.Role, "Trip completed", domain.MessageStatusUpdate, now))
	m.apply(b, domain.StatusCompleted, actor, false, now, "")
	return nil
}

func (m *Machine) Cancel(b *domain.Booking, actor domain.Actor, reason string) error {
	if err := m.ensure(b, domain.StatusCancelled, "cancel"); err != nil {
		return err
	}
	now := m.now()
	b.Cancellation = domain.Cancellation{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        &now,
		Reason:    strings.TrimSpace(reason),
	}
	text := "Booking cancelled"
	if b.Cancellation.Reason != "" {
		text += ": " + b.Cancellation.Reason
	}
	b.Messages = append(b.Messages, message(actor.Role, text, domain.MessageCancellation, now))
	m.apply(b, domain.StatusCancelled, actor, false, now, reason)
	return nil
}

// AddMessage appends to the communication log of an active booking.
func (m *Machine) AddMessage(b *domain.Booking, actor domain.Actor, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.NewValidationError("message", "must not be empty")
	}
	if b.Status.IsTerminal() {
		return &domain.StateConflictError{Current: b.Status, Requested: b.Status, Operation: "add message"}
	}
	now := m.now()
	b.Messages = append(b.Messages, message(actor.Role, text, domain.MessageText, now))
	b.UpdatedAt = now
	b.RecordEvent(m.event(b, domain.EventMessageAppended, b.Status, b.Status, actor, false, text))
	return nil
}

// SubmitFeedback is allowed once, after completion.
func (m *Machine) SubmitFeedback(b *domain.Booking, actor domain.Actor, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating", "must be between 1 and 5")
	}
	if b.Status != domain.StatusCompleted {
		return &domain.StateConflictError{Current: b.Status, Requested: domain.StatusCompleted, Operation: "submit feedback"}
	}
	if b.Feedback.SubmittedAt != nil {
		return domain.NewValidationError("feedback", "already submitted")
	}
	now := m.now()
	b.Feedback = domain.Feedback{Rating: rating, Comment: strings.TrimSpace(comment), SubmittedAt: &now}
	b.UpdatedAt = now
	return nil
}

func (m *Machine) ensure(b *domain.Booking, to domain.BookingStatus, op string) error {
	if !b.Status.CanTransitionTo(to) {
		return &domain.StateConflictError{Current: b.Status, Requested: to, Operation: op}
	}
	return nil
}

func (m *Machine) apply(b *domain.Booking, to domain.BookingStatus, actor domain.Actor, automatic bool, now time.Time, note string) {
	from := b.Status
	b.Status = to
	b.UpdatedAt = now
	b.History = append(b.History, historyEntry(to, now, actor, automatic))
	b.SLA = sla.Compute(b.CreatedAt, b.History, m.targets)
	b.RecordEvent(m.event(b, domain.EventStatusChanged, from, to, actor, automatic, note))
}

func (m *Machine) issueQuote(b *domain.Booking, in QuoteInput, now time.Time) error {
	br, err := quote.Compute(in.BasePrice, in.MarkupPercent)
	if err != nil {
		return err
	}
	hours := in.ExpirationHours
	if hours < 0 {
		return domain.NewValidationError("expiration_hours", "must be positive")
	}
	if hours == 0 {
		hours = defaultQuoteExpirationHours
	}
	expires := now.Add(time.Duration(hours) * time.Hour)
	issued := now

	b.Quote = domain.Quote{
		BasePrice:     br.Base,
		MarkupPercent: br.MarkupPercent,
		MarkupAmount:  br.MarkupAmount,
		FinalPrice:    br.Final,
		IssuedAt:      &issued,
		ExpiresAt:     &expires,
		Notes:         strings.TrimSpace(in.Notes),
	}
	b.Markup = domain.Markup{Percentage: br.MarkupPercent, Amount: br.MarkupAmount}
	b.Payment.TotalAmount = br.Final
	return nil
}

func (m *Machine) event(b *domain.Booking, typ domain.EventType, from, to domain.BookingStatus, actor domain.Actor, automatic bool, note string) domain.BookingEvent {
	return domain.BookingEvent{
		ID:               uuid.NewString(),
		Type:             typ,
		BookingReference: b.Reference,
		GuestID:          b.GuestID,
		HotelID:          b.HotelID,
		ProviderID:       b.ProviderID,
		From:             from,
		To:               to,
		Actor:            actor,
		Automatic:        automatic,
		Note:             note,
		Amount:           b.Quote.FinalPrice,
		Currency:         b.Payment.Currency,
		At:               m.now(),
	}
}

func historyEntry(status domain.BookingStatus, at time.Time, actor domain.Actor, automatic bool) domain.StatusHistoryEntry {
	return domain.StatusHistoryEntry{
		Status:    status,
		At:        at,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Automatic: automatic,
	}
}

func message(role domain.ActorRole, text string, typ domain.MessageType, at time.Time) domain.CommunicationEntry {
	return domain.CommunicationEntry{SenderRole: role, Message: text, Type: typ, At: at}
}

func quoteMessage(b *domain.Booking) string {
	text := fmt.Sprintf("Quote: %s %s", b.Quote.FinalPrice, b.Payment.Currency)
	if b.Quote.Notes != "" {
		text += " (" + b.Quote.Notes + ")"
	}
	return text
}

func applyGateway(g *domain.GatewayRecord, out domain.PaymentOutcome) {
	if out.TransactionID != "" {
		txID := out.TransactionID
		g.TransactionID = &txID
	}
	if out.OrderReference != "" {
		g.OrderReference = out.OrderReference
	}
	if out.RawPayload != "" {
		g.RawPayload = out.RawPayload
	}
	g.ResponseCode = out.ResponseCode
	g.ResponseMessage = out.ResponseMessage
}

func validateRequest(req NewRequest) error {
	switch {
	case req.Reference == "":
		return domain.NewValidationError("booking_reference", "is required")
	case req.GuestID == "":
		return domain.NewValidationError("guest_id", "is required")
	case req.HotelID == "":
		return domain.NewValidationError("hotel_id", "is required")
	case req.ProviderID == "":
		return domain.NewValidationError("provider_id", "is required")
	case strings.TrimSpace(req.Trip.Pickup) == "":
		return domain.NewValidationError("pickup", "is required")
	case strings.TrimSpace(req.Trip.Destination) == "":
		return domain.NewValidationError("destination", "is required")
	case req.Trip.PassengerCount < 1:
		return domain.NewValidationError("passenger_count", "must be at least 1")
	case req.Markup < 0:
		return domain.NewValidationError("markup_percentage", "must not be negative")
	}
	return nil
}
