package couples

import "errors"

var (
	ErrCoupleNotFound    = errors.New("Couple not found")
	ErrDuplicateUsername = errors.New("Username already registered")
	ErrInvalidInput      = errors.New("Invalid couple input")
)
