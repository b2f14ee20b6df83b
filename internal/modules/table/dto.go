package table

type CreateTableRequest struct {
	BranchID   string `json:"branchId" binding:"required"`
	BranchName string `json:"branchName"`
	FloorID    int    `json:"floorId" binding:"required,gt=0"`
	FloorName  string `json:"floorName"`
	Code       string `json:"code" binding:"required"`
	Capacity   int    `json:"capacity" binding:"required,gt=0"`
	MinPrice   int64  `json:"minPrice" binding:"gte=0"`
	Type       string `json:"type"`
	Note       string `json:"note"`
}

// UpdateTableRequest changes only the fields that are present.
type UpdateTableRequest struct {
	BranchName *string `json:"branchName"`
	FloorName  *string `json:"floorName"`
	Code       *string `json:"code"`
	Capacity   *int    `json:"capacity"`
	MinPrice   *int64  `json:"minPrice"`
	Type       *string `json:"type"`
	Status     *string `json:"status"`
	Note       *string `json:"note"`
}

type ListQuery struct {
	BranchID        string `form:"branchId"`
	FloorID         int    `form:"floorId"`
	IncludeInactive bool   `form:"includeInactive"`
}
