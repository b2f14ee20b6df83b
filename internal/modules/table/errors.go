package table

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("table not found")
	ErrDuplicate  = errors.New("table code already exists on this floor")
)
