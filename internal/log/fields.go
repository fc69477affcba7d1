// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldProfileID = "profile_id"
	FieldVideoID   = "video_id"
	FieldSeriesID  = "series_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldBackend   = "backend"

	// Stream fields
	FieldRange       = "range"
	FieldBytes       = "bytes"
	FieldSize        = "size"
	FieldContentType = "content_type"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"

	FieldError = "error"
)
