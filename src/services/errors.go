package services

import "errors"

var (
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrMissingInstitution = errors.New("institution is required")
)
