package domain

import "time"

type BookingStatus string

const (
	BookingPendingMenu    BookingStatus = "PENDING_MENU"
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingPaid           BookingStatus = "PAID"
	BookingCancelled      BookingStatus = "CANCELLED"
)

// ActiveBookingStatuses are the statuses whose bookings still hold their tables.
var ActiveBookingStatuses = []BookingStatus{BookingPendingMenu, BookingPendingPayment}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentExpired PaymentStatus = "EXPIRED"
)

// BookingTable is a reference to a physical table claimed by a booking.
type BookingTable struct {
	Code      string `json:"code"`
	FloorID   int    `json:"floorId"`
	FloorName string `json:"floorName,omitempty"`
}

// BookingItem is a menu line snapshotted from the cart at confirm-menu time.
type BookingItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

type Booking struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	BranchID         string         `json:"branchId"`
	BranchName       string         `json:"branchName,omitempty"`
	Date             string         `json:"date"`
	Time             string         `json:"time"`
	NumberOfGuests   int            `json:"numberOfGuests"`
	Tables           []BookingTable `json:"tables"`
	TableType        string         `json:"tableType,omitempty"`
	BasePrice        int64          `json:"basePrice"`
	Items            []BookingItem  `json:"items"`
	TotalFoodPrice   int64          `json:"totalFoodPrice"`
	TotalPrice       int64          `json:"totalPrice"`
	Status           BookingStatus  `json:"status"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus"`
	PaymentExpiresAt *time.Time     `json:"paymentExpiresAt,omitempty"`
	CancelRequested  bool           `json:"cancelRequested"`
	// PaidPaymentID names the payment attempt that settled the booking.
	PaidPaymentID string `json:"paidPaymentId,omitempty"`
	Note             string         `json:"note,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (b *Booking) IsTerminal() bool {
	return b.Status == BookingPaid || b.Status == BookingCancelled
}

// TableCodes returns the claimed codes in booking order.
func (b *Booking) TableCodes() []string {
	return TableCodes(b.Tables)
}

// AmountDue is what a payment for this booking must cover.
func (b *Booking) AmountDue() int64 {
	if b.TotalPrice > 0 {
		return b.TotalPrice
	}
	return b.BasePrice + b.TotalFoodPrice
}

// PaymentWindowElapsed reports whether the payment hold ended before at.
func (b *Booking) PaymentWindowElapsed(at time.Time) bool {
	return b.PaymentExpiresAt != nil && b.PaymentExpiresAt.Before(at)
}

func TableCodes(tables []BookingTable) []string {
	codes := make([]string, 0, len(tables))
	for _, t := range tables {
		codes = append(codes, t.Code)
	}
	return codes
}

// FoodTotal sums price x quantity over the items.
func FoodTotal(items []BookingItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
