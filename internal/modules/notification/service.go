// Package notification turns booking events into in-app notifications and
// credits loyalty points on completed trips.
package notification

import (
	"context"
	"fmt"

	"hotelrides/internal/domain"
	"hotelrides/internal/events"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkAsRead(ctx context.Context, id int64, recipientID string) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
}

// Contact is what the guest directory knows about a guest.
type Contact struct {
	Name    string
	Channel string
}

type GuestDirectory interface {
	Contact(ctx context.Context, guestID string) (Contact, error)
}

type LoyaltyLedger interface {
	Accrue(ctx context.Context, a *domain.LoyaltyAccrual) (bool, error)
}

type Service struct {
	store   Store
	guests  GuestDirectory
	loyalty LoyaltyLedger
	log     *zap.Logger
}

func NewService(store Store, guests GuestDirectory, loyalty LoyaltyLedger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if guests == nil {
		guests = StaticDirectory{}
	}
	return &Service{store: store, guests: guests, loyalty: loyalty, log: log}
}

// Subscribe attaches the service to the event bus.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(s.HandleEvent)
}

// HandleEvent never fails the caller. Delivery errors are logged.
func (s *Service) HandleEvent(ctx context.Context, e domain.BookingEvent) {
	for _, n := range s.build(ctx, e) {
		if err := s.store.Create(ctx, n); err != nil {
			s.log.Warn("notification not stored",
				zap.String("booking_reference", e.BookingReference),
				zap.String("type", string(n.Type)),
				zap.Error(err))
		}
	}
	if e.IsCompletion() {
		s.accrue(ctx, e)
	}
}

func (s *Service) build(ctx context.Context, e domain.BookingEvent) []*domain.Notification {
	ref := e.BookingReference
	toGuest := func(t domain.NotificationType, title, body string) *domain.Notification {
		return &domain.Notification{RecipientID: e.GuestID, RecipientRole: domain.RoleGuest, Type: t, Title: title, Body: body, BookingReference: ref}
	}
	toProvider := func(t domain.NotificationType, title, body string) *domain.Notification {
		return &domain.Notification{RecipientID: e.ProviderID, RecipientRole: domain.RoleProvider, Type: t, Title: title, Body: body, BookingReference: ref}
	}
	price := fmt.Sprintf("%s %s", e.Amount, e.Currency)

	switch e.Type {
	case domain.EventBookingCreated:
		return []*domain.Notification{toProvider(domain.NotifBookingRequested, "New transport request",
			fmt.Sprintf("%s requested a ride, booking %s", s.guestName(ctx, e.GuestID), ref))}

	case domain.EventPaymentFailed:
		return []*domain.Notification{toGuest(domain.NotifPaymentFailed, "Payment failed",
			fmt.Sprintf("Payment for %s did not go through. You can try again.", ref))}

	case domain.EventPaymentRefunded:
		return []*domain.Notification{toGuest(domain.NotifPaymentRefunded, "Refund processed",
			fmt.Sprintf("%s was refunded for %s.", price, ref))}

	case domain.EventMessageAppended:
		if e.Actor.Role == domain.RoleGuest {
			return []*domain.Notification{toProvider(domain.NotifNewMessage, "New message", e.Note)}
		}
		return []*domain.Notification{toGuest(domain.NotifNewMessage, "New message", e.Note)}
	}

	switch e.To {
	case domain.StatusQuoteSent:
		return []*domain.Notification{toGuest(domain.NotifQuoteReady, "Your quote is ready", "Trip "+ref+" is quoted at "+price)}
	case domain.StatusPaymentPending:
		// pay-first bookings are quoted by the system from the tariff
		if e.From == domain.StatusPendingQuote && e.Actor.Role != domain.RoleSystem {
			return []*domain.Notification{toGuest(domain.NotifQuoteReady, "Your quote is ready", "Trip "+ref+" is quoted at "+price+". Complete payment to confirm.")}
		}
	case domain.StatusQuoteAccepted:
		return []*domain.Notification{toProvider(domain.NotifQuoteAnswered, "Quote accepted", s.guestName(ctx, e.GuestID)+" accepted the quote for "+ref)}
	case domain.StatusQuoteRejected:
		return []*domain.Notification{toProvider(domain.NotifQuoteAnswered, "Quote rejected", s.guestName(ctx, e.GuestID)+" rejected the quote for "+ref)}
	case domain.StatusPaymentCompleted:
		return []*domain.Notification{
			toGuest(domain.NotifPaymentReceived, "Payment received", "We received "+price+" for "+ref),
			toProvider(domain.NotifBookingConfirmed, "Trip paid", "Trip "+ref+" is paid and confirmed"),
		}
	case domain.StatusConfirmed:
		return []*domain.Notification{toGuest(domain.NotifBookingConfirmed, "Trip confirmed", "Trip "+ref+" is confirmed, pay the driver in cash")}
	case domain.StatusServiceActive:
		return []*domain.Notification{toGuest(domain.NotifTripStarted, "Trip started", "Your driver started trip "+ref)}
	case domain.StatusCompleted:
		return []*domain.Notification{toGuest(domain.NotifTripCompleted, "Trip completed", "Thanks for riding with us. Rate trip "+ref)}
	case domain.StatusQuoteExpired:
		return []*domain.Notification{
			toGuest(domain.NotifQuoteExpired, "Quote expired", "The quote for "+ref+" expired"),
			toProvider(domain.NotifQuoteExpired, "Quote expired", "The quote for "+ref+" expired"),
		}
	case domain.StatusCancelled:
		body := "Booking " + ref + " was cancelled"
		if e.Note != "" {
			body += ": " + e.Note
		}
		switch e.Actor.Role {
		case domain.RoleGuest:
			return []*domain.Notification{toProvider(domain.NotifBookingCancelled, "Booking cancelled", body)}
		case domain.RoleProvider:
			return []*domain.Notification{toGuest(domain.NotifBookingCancelled, "Booking cancelled", body)}
		}
		return []*domain.Notification{
			toGuest(domain.NotifBookingCancelled, "Booking cancelled", body),
			toProvider(domain.NotifBookingCancelled, "Booking cancelled", body),
		}
	}
	return nil
}

func (s *Service) guestName(ctx context.Context, guestID string) string {
	c, err := s.guests.Contact(ctx, guestID)
	if err != nil || c.Name == "" {
		return "A guest"
	}
	return c.Name
}

// accrue credits one point per whole currency unit paid.
func (s *Service) accrue(ctx context.Context, e domain.BookingEvent) {
	if s.loyalty == nil || e.Amount <= 0 {
		return
	}
	created, err := s.loyalty.Accrue(ctx, &domain.LoyaltyAccrual{
		GuestID:          e.GuestID,
		HotelID:          e.HotelID,
		BookingReference: e.BookingReference,
		Amount:           e.Amount,
		Points:           int64(e.Amount) / 100,
	})
	if err != nil {
		s.log.Warn("loyalty accrual failed", zap.String("booking_reference", e.BookingReference), zap.Error(err))
		return
	}
	if created {
		s.log.Info("loyalty points credited",
			zap.String("guest_id", e.GuestID),
			zap.String("booking_reference", e.BookingReference),
			zap.Int64("points", int64(e.Amount)/100))
	}
}

func (s *Service) List(ctx context.Context, recipientID string, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.store.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		unread = 0
	}
	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, id int64, recipientID string) error {
	return s.store.MarkAsRead(ctx, id, recipientID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, recipientID string) error {
	return s.store.MarkAllAsRead(ctx, recipientID)
}
