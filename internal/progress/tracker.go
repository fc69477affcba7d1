// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package progress tracks per-profile playback positions.
package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/telemetry"
)

// VideoLookup confirms that a video exists before progress is recorded.
type VideoLookup interface {
	Video(ctx context.Context, id string) (domain.Video, error)
}

// WriteHook runs after a successful write for profileID. Recommendation
// caches subscribe here.
type WriteHook func(ctx context.Context, profileID string)

// Tracker records and queries viewing progress. It holds no per-profile
// state; every call goes to the store.
type Tracker struct {
	store  Store
	videos VideoLookup
	now    func() time.Time
	hooks  []WriteHook
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithWriteHook registers fn to run after Record and DeleteForProfile.
func WithWriteHook(fn WriteHook) TrackerOption {
	return func(t *Tracker) {
		if fn != nil {
			t.hooks = append(t.hooks, fn)
		}
	}
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, videos VideoLookup, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, videos: videos, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record upserts the position for (profileID, videoID). Negative values
// are clamped to zero and the last write wins.
func (t *Tracker) Record(ctx context.Context, profileID, videoID string, position, duration float64) (domain.Progress, error) {
	ctx, span := telemetry.Tracer("reelbox/progress").Start(ctx, "progress.record")
	defer span.End()

	pid, vid, err := parseKey(profileID, videoID)
	if err != nil {
		return domain.Progress{}, err
	}
	if !finite(position) || !finite(duration) {
		return domain.Progress{}, fmt.Errorf("%w: position and duration must be finite numbers", domain.ErrValidation)
	}
	if _, err := t.videos.Video(ctx, vid); err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return domain.Progress{}, err
	}

	p := domain.Progress{
		ProfileID: pid,
		VideoID:   vid,
		Position:  max(position, 0),
		Duration:  max(duration, 0),
		UpdatedAt: t.now().UTC().Truncate(time.Millisecond),
	}
	if err := t.store.Put(ctx, p); err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return domain.Progress{}, err
	}

	log.WithComponentFromContext(ctx, "progress").Debug().
		Str(log.FieldEvent, "progress.recorded").
		Str(log.FieldVideoID, vid).
		Float64("position", p.Position).
		Float64("duration", p.Duration).
		Msg("progress recorded")

	t.notify(ctx, pid)
	return p, nil
}

// Get returns the stored record or a zero-position default. A missing
// record is not an error.
func (t *Tracker) Get(ctx context.Context, profileID, videoID string) (domain.Progress, error) {
	pid, vid, err := parseKey(profileID, videoID)
	if err != nil {
		return domain.Progress{}, err
	}
	p, ok, err := t.store.Get(ctx, pid, vid)
	if err != nil {
		return domain.Progress{}, err
	}
	if !ok {
		return domain.Progress{ProfileID: pid, VideoID: vid}, nil
	}
	return p, nil
}

// InProgress returns the profile's unfinished records, most recent first.
func (t *Tracker) InProgress(ctx context.Context, profileID string) ([]domain.Progress, error) {
	all, err := t.History(ctx, profileID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.InProgress() {
			out = append(out, p)
		}
	}
	return out, nil
}

// History returns every record of the profile, most recent first.
func (t *Tracker) History(ctx context.Context, profileID string) ([]domain.Progress, error) {
	pid, err := domain.ParseID(profileID)
	if err != nil {
		return nil, err
	}
	return t.store.List(ctx, pid)
}

// DeleteForProfile removes all progress of a deleted profile.
func (t *Tracker) DeleteForProfile(ctx context.Context, profileID string) (int64, error) {
	pid, err := domain.ParseID(profileID)
	if err != nil {
		return 0, err
	}
	n, err := t.store.DeleteProfile(ctx, pid)
	if err != nil {
		return 0, err
	}
	log.WithComponentFromContext(ctx, "progress").Info().
		Str(log.FieldEvent, "progress.profile_deleted").
		Str(log.FieldProfileID, pid).
		Int64("records", n).
		Msg("profile progress deleted")

	t.notify(ctx, pid)
	return n, nil
}

func (t *Tracker) notify(ctx context.Context, profileID string) {
	for _, fn := range t.hooks {
		fn(ctx, profileID)
	}
}

func parseKey(profileID, videoID string) (string, string, error) {
	pid, err := domain.ParseID(profileID)
	if err != nil {
		return "", "", err
	}
	vid, err := domain.ParseID(videoID)
	if err != nil {
		return "", "", err
	}
	return pid, vid, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
