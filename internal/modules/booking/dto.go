package booking

import "restobook/internal/domain"

// TableSelection picks a table by code. FloorID is optional and, when set,
// must match the registry.
type TableSelection struct {
	Code    string `json:"code" binding:"required"`
	FloorID int    `json:"floorId"`
}

type CreateBookingRequest struct {
	UserID         string           `json:"userId"`
	BranchID       string           `json:"branchId" binding:"required"`
	BranchName     string           `json:"branchName"`
	Date           string           `json:"date" binding:"required"`
	Time           string           `json:"time" binding:"required"`
	NumberOfGuests int              `json:"numberOfGuests" binding:"required,gte=1"`
	Tables         []TableSelection `json:"tables" binding:"dive"`
	TableType      string           `json:"tableType"`
	BasePrice      int64            `json:"basePrice" binding:"gte=0"`
	Note           string           `json:"note"`
}

type UpdateTablesRequest struct {
	Tables    []TableSelection `json:"tables" binding:"dive"`
	TableType *string          `json:"tableType"`
	BasePrice *int64           `json:"basePrice"`
}

type ListQuery struct {
	Status   string `form:"status"`
	BranchID string `form:"branchId"`
	Date     string `form:"date"`
	Upcoming bool   `form:"upcoming"`
}

// MarkPaidRequest names the settling attempt. Amount 0 skips the total check.
type MarkPaidRequest struct {
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount" binding:"gte=0"`
}

type MarkPaidResponse struct {
	Booking       *domain.Booking `json:"booking"`
	AlreadyPaid   bool            `json:"alreadyPaid"`
	PaidPaymentID string          `json:"paidPaymentId,omitempty"`
}
