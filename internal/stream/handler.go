// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/problem"
	"github.com/ManuGH/reelbox/internal/telemetry"
)

const copyBufferSize = 64 << 10

// ServeVideo writes the stream for videoID to w. GET and HEAD are supported.
func (s *Service) ServeVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	ctx, span := telemetry.Tracer("reelbox/stream").Start(r.Context(), "stream.serve")
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "stream")
	rangeHeader := r.Header.Get("Range")

	resp, err := s.Open(ctx, videoID, rangeHeader)
	if err != nil {
		status := problem.Status(err)
		s.metrics.Served(status)
		telemetry.RecordError(span, err, "stream")

		var rerr *RangeError
		if errors.As(err, &rerr) {
			w.Header().Set("Content-Range", Format416ContentRange(rerr.Size))
			logger.Debug().
				Str(log.FieldEvent, "stream.range_rejected").
				Str(log.FieldVideoID, videoID).
				Str(log.FieldRange, rangeHeader).
				Str("reason", rerr.Reason).
				Msg("range not satisfiable")
		}
		problem.WriteError(w, r, "stream", err)
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str(log.FieldVideoID, videoID).Msg("failed to close media file")
		}
	}()
	span.SetAttributes(telemetry.RangeAttributes(resp.Range.Start, resp.Range.End, resp.Size)...)

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", resp.ContentType)
	h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	h.Set("Cache-Control", "private, max-age=0")
	h.Set("X-Content-Type-Options", "nosniff")
	if !resp.ModTime.IsZero() {
		h.Set("Last-Modified", resp.ModTime.UTC().Format(http.TimeFormat))
	}
	if resp.ContentRange != "" {
		h.Set("Content-Range", resp.ContentRange)
	}
	w.WriteHeader(resp.Status)
	s.metrics.Served(resp.Status)

	if r.Method == http.MethodHead {
		return
	}

	start := time.Now()
	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(w, resp.Body, buf)
	s.metrics.Bytes(n)

	if err == nil && n < resp.ContentLength {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		if isClientGone(r.Context(), err) {
			s.metrics.Aborted("client_gone")
			logger.Debug().
				Str(log.FieldEvent, "stream.client_gone").
				Str(log.FieldVideoID, videoID).
				Int64(log.FieldBytes, n).
				Msg("client disconnected mid-stream")
			return
		}
		s.metrics.Aborted("io_error")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "stream.aborted").
			Str(log.FieldVideoID, videoID).
			Int64(log.FieldBytes, n).
			Int64(log.FieldSize, resp.Size).
			Msg("stream aborted by read failure")
		// Abort the connection so the client cannot mistake a short body
		// for a complete one.
		panic(http.ErrAbortHandler)
	}

	logger.Debug().
		Str(log.FieldEvent, "stream.completed").
		Str(log.FieldVideoID, videoID).
		Int(log.FieldStatus, resp.Status).
		Int64(log.FieldBytes, n).
		Int64(log.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("stream completed")
}

func isClientGone(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrHandlerTimeout) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "write"
}
