// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import "errors"

// Error classes shared by every engine component. Callers wrap them with
// context and test with errors.Is; anything else is a server error.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidIdentifier   = errors.New("invalid identifier")
	ErrValidation          = errors.New("validation failed")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// ErrorClass names the class of err for logs and problem responses.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidIdentifier):
		return "INVALID_IDENTIFIER"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrRangeNotSatisfiable):
		return "RANGE_NOT_SATISFIABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
