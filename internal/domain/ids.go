// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseID validates a video, series or profile identifier and returns its
// canonical lowercase form.
func ParseID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidIdentifier)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id.String(), nil
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}
