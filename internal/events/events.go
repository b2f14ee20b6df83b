// Package events carries booking lifecycle events between services over a
// RabbitMQ fanout exchange.
package events

import (
	"context"
	"time"
)

const (
	ExchangeName = "booking.exchange"

	BookingCreated   = "booking.created"
	BookingExpired   = "booking.expired"
	BookingPaid      = "booking.paid"
	BookingCancelled = "booking.cancelled"

	// PaymentQueue is where the payment service listens.
	PaymentQueue = "booking.created.payment"
)

// BookingEvent is the JSON body of every booking.* message.
type BookingEvent struct {
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	TotalPrice int64     `json:"totalPrice"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	BranchName string    `json:"branchName,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits booking events. Implementations must not block the request
// path for long; failures are reported to the caller, who logs and moves on.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, ev BookingEvent) error
}

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	Loggerf func(format string, args ...interface{})
}

func (p LogPublisher) Publish(_ context.Context, routingKey string, ev BookingEvent) error {
	if p.Loggerf != nil {
		p.Loggerf("level=info msg=\"event (no broker)\" key=%s booking_id=%s status=%s", routingKey, ev.BookingID, ev.Status)
	}
	return nil
}
