package booking

import (
	"context"
	"time"

	"restobook/internal/clients"
	"restobook/internal/domain"
	"restobook/internal/repository"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, error)
	HasConflict(ctx context.Context, excludeBookingID, branchID, date, slot string, tableCodes []string) ([]string, error)
	ReplaceTables(ctx context.Context, id string, tables []domain.BookingTable, tableType *string, basePrice int64) (*domain.Booking, error)
	ConfirmMenu(ctx context.Context, id string, items []domain.BookingItem, totalFood, total int64, expiresAt time.Time) (*domain.Booking, error)
	MarkPaid(ctx context.Context, id, paymentID string, amount int64) (*domain.Booking, bool, error)
	RequestCancel(ctx context.Context, id string) (*domain.Booking, error)
	Cancel(ctx context.Context, id string) (*domain.Booking, bool, error)
	Expire(ctx context.Context, id string, deadline time.Time) (*domain.Booking, bool, error)
	ListExpired(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	Delete(ctx context.Context, id string) (*domain.Booking, error)
}

// TableResolver maps requested codes to active registry tables.
type TableResolver interface {
	Resolve(ctx context.Context, branchID string, codes []string) ([]domain.Table, error)
}

type CartReader interface {
	GetCart(ctx context.Context, bookingID string) (*domain.Cart, error)
}

// ExpiryNotifier tells the payment side a hold ran out.
type ExpiryNotifier interface {
	RecordExpired(ctx context.Context, req clients.ExpiredRequest) error
}

// Broadcaster pushes booking snapshots to live subscribers.
type Broadcaster interface {
	Broadcast(b *domain.Booking)
}
