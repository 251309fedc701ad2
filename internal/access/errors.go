package access

import "errors"

var (
	ErrNotFound     = errors.New("access: not found")
	ErrConflict     = errors.New("access: resource conflict")
	ErrInvalidInput = errors.New("access: invalid input")
)
