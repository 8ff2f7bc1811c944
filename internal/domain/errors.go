package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptyTable     = errors.New("table is empty")
	ErrMissingColumns = errors.New("table is missing required columns")
)
