// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/reelbox/internal/domain"
)

// Range represents a byte range [Start, End] (inclusive).
type Range struct {
	Start int64
	End   int64
}

// Length is the number of bytes covered by r.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// RangeError reports an unsatisfiable Range header together with the
// resource size needed for the 416 Content-Range header.
type RangeError struct {
	Header string
	Size   int64
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range not satisfiable: %s (%q, size %d)", e.Reason, e.Header, e.Size)
}

// Unwrap lets errors.Is(err, domain.ErrRangeNotSatisfiable) match.
func (e *RangeError) Unwrap() error {
	return domain.ErrRangeNotSatisfiable
}

// ParseRange parses a single "bytes=<start>-[<end>]" header.
//
// The start offset is mandatory. An absent end yields a window of chunk
// bytes, an end past the file is clamped to size-1. Suffix ranges, other
// units, multi-range requests, start > end and start >= size are rejected.
func ParseRange(header string, size, chunk int64) (Range, error) {
	fail := func(reason string) (Range, error) {
		return Range{}, &RangeError{Header: header, Size: size, Reason: reason}
	}

	const prefix = "bytes="
	h := strings.TrimSpace(header)
	if !strings.HasPrefix(strings.ToLower(h), prefix) {
		return fail("unsupported unit")
	}
	set := strings.TrimSpace(h[len(prefix):])
	if strings.Contains(set, ",") {
		return fail("multi-range not supported")
	}

	startStr, endStr, ok := strings.Cut(set, "-")
	if !ok {
		return fail("missing separator")
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)
	if startStr == "" {
		return fail("missing start")
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return fail("malformed start")
	}
	if start >= size {
		return fail("start beyond end of file")
	}

	var end int64
	if endStr == "" {
		if chunk <= 0 {
			end = size - 1
		} else {
			end = min(start+chunk-1, size-1)
		}
	} else {
		end, err = parseOffset(endStr)
		if err != nil {
			return fail("malformed end")
		}
		if end < start {
			return fail("start after end")
		}
		end = min(end, size-1)
	}
	return Range{Start: start, End: end}, nil
}

func parseOffset(s string) (int64, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// FormatContentRange returns "bytes start-end/size".
func FormatContentRange(r Range, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Format416ContentRange returns "bytes */size".
func Format416ContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
