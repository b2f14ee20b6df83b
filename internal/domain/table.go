package domain

import "time"

type TableType string

const (
	TableNormal  TableType = "normal"
	TableVIP     TableType = "vip"
	TableSVIP    TableType = "svip"
	TablePrivate TableType = "private"
)

type TableStatus string

const (
	TableActive   TableStatus = "active"
	TableInactive TableStatus = "inactive"
)

type Table struct {
	ID         string      `json:"id"`
	BranchID   string      `json:"branchId" validate:"required"`
	BranchName string      `json:"branchName,omitempty"`
	FloorID    int         `json:"floorId" validate:"required,gt=0"`
	FloorName  string      `json:"floorName,omitempty"`
	Code       string      `json:"code" validate:"required,max=16"`
	Capacity   int         `json:"capacity" validate:"required,gt=0"`
	MinPrice   int64       `json:"minPrice" validate:"gte=0"`
	Type       TableType   `json:"type" validate:"required,oneof=normal vip svip private"`
	Status     TableStatus `json:"status" validate:"required,oneof=active inactive"`
	Note       string      `json:"note,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func (t *Table) IsActive() bool { return t.Status == TableActive }

func (t *Table) Ref() BookingTable {
	return BookingTable{Code: t.Code, FloorID: t.FloorID, FloorName: t.FloorName}
}
