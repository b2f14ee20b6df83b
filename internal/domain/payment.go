package domain

import "time"

type PaymentRecordStatus string

const (
	PaymentRecordPending PaymentRecordStatus = "PENDING"
	PaymentRecordSuccess PaymentRecordStatus = "SUCCESS"
	PaymentRecordFailed  PaymentRecordStatus = "FAILED"
	PaymentRecordExpired PaymentRecordStatus = "EXPIRED"
)

type PaymentMethod string

const (
	MethodMock PaymentMethod = "MOCK"
	MethodMomo PaymentMethod = "MOMO"
)

// Payment is a single payment attempt against a booking. The booking lives in
// another service, so BookingID is a plain reference.
type Payment struct {
	ID            string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BookingID     string              `gorm:"index;not null;type:varchar(36)" json:"bookingId"`
	UserID        string              `gorm:"index;type:varchar(64)" json:"userId,omitempty"`
	Amount        int64               `gorm:"not null" json:"amount"`
	Method        PaymentMethod       `gorm:"type:varchar(16);not null" json:"method"`
	Status        PaymentRecordStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	TransactionID string              `gorm:"type:varchar(96);index" json:"transactionId"`
	PayURL        string              `gorm:"type:text" json:"payUrl,omitempty"`
	FailureReason string              `gorm:"type:text" json:"failureReason,omitempty"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }
