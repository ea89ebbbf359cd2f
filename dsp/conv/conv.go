package conv

import "errors"

// Errors returned by the correlation functions.
var (
	ErrEmptyInput = errors.New("conv: empty input")
	ErrInvalidLag = errors.New("conv: invalid lag range")
)
