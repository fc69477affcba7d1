// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream serves video files under the HTTP byte-range protocol.
package stream

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/ManuGH/reelbox/internal/media"
)

// DefaultChunkSize bounds the response to an open-ended range.
const DefaultChunkSize int64 = 1_000_000

// Opener resolves a video to an open file handle.
type Opener interface {
	Open(ctx context.Context, videoID string) (media.File, afero.File, error)
}

// Response is a ready-to-send stream. Body must always be closed.
type Response struct {
	Status        int
	ContentType   string
	ContentLength int64
	// ContentRange is set for 206 responses only.
	ContentRange string
	Size         int64
	ModTime      time.Time
	Range        Range
	Body         io.ReadCloser
}

// Service opens byte windows of catalog videos.
type Service struct {
	files     Opener
	chunkSize int64
	metrics   Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithChunkSize sets the open-ended range window.
func WithChunkSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService creates a streaming service over files.
func NewService(files Opener, opts ...Option) *Service {
	s := &Service{
		files:     files,
		chunkSize: DefaultChunkSize,
		metrics:   NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open resolves videoID and prepares the response for rangeHeader.
// An empty header selects the whole file. The returned body holds the only
// reference to the file handle.
func (s *Service) Open(ctx context.Context, videoID, rangeHeader string) (*Response, error) {
	f, h, err := s.files.Open(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if rangeHeader == "" {
		return &Response{
			Status:        http.StatusOK,
			ContentType:   f.ContentType,
			ContentLength: f.Size,
			Size:          f.Size,
			ModTime:       f.ModTime,
			Range:         Range{Start: 0, End: f.Size - 1},
			Body:          newBody(io.NewSectionReader(h, 0, f.Size), h),
		}, nil
	}

	r, err := ParseRange(rangeHeader, f.Size, s.chunkSize)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return &Response{
		Status:        http.StatusPartialContent,
		ContentType:   f.ContentType,
		ContentLength: r.Length(),
		ContentRange:  FormatContentRange(r, f.Size),
		Size:          f.Size,
		ModTime:       f.ModTime,
		Range:         r,
		Body:          newBody(io.NewSectionReader(h, r.Start, r.Length()), h),
	}, nil
}

// body reads a bounded section and closes the underlying handle once.
type body struct {
	io.Reader
	closer io.Closer
	once   sync.Once
	err    error
}

func newBody(r io.Reader, c io.Closer) *body {
	return &body{Reader: r, closer: c}
}

func (b *body) Close() error {
	b.once.Do(func() { b.err = b.closer.Close() })
	return b.err
}
