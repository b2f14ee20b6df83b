package payment

import (
	"context"

	"restobook/internal/events"
)

// BookingCreatedHandler consumes booking.created. Nothing is charged at that
// point; the event is logged so operators can follow a booking end to end.
func (s *Service) BookingCreatedHandler() events.Handler {
	return func(_ context.Context, routingKey string, ev events.BookingEvent) error {
		s.loggerf("level=info msg=\"booking event received\" key=%s booking_id=%s user_id=%s total=%d date=%s time=%s",
			routingKey, ev.BookingID, ev.UserID, ev.TotalPrice, ev.Date, ev.Time)
		return nil
	}
}
