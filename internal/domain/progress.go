// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import "time"

// CompletionThreshold is the watched fraction at which a video no longer
// counts as in progress.
const CompletionThreshold = 0.99

// Progress is the per (profile, video) playback position.
type Progress struct {
	ProfileID string    `json:"profileId"`
	VideoID   string    `json:"videoId"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// InProgress reports 0 < position < duration * CompletionThreshold.
func (p Progress) InProgress() bool {
	return p.Position > 0 && p.Position < p.Duration*CompletionThreshold
}
