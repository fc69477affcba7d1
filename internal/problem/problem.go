// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package problem writes RFC 7807 error responses and maps engine errors to
// HTTP statuses.
package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/validation"
)

const (
	// HeaderRequestID is the canonical header for request correlation.
	HeaderRequestID = "X-Request-ID"
	// JSONKeyRequestID is the canonical JSON key for request correlation.
	JSONKeyRequestID = "requestId"
)

// Write writes an RFC 7807 problem details response.
//
//   - type: machine identifier (e.g. "catalog/not_found").
//   - title: human-readable short label.
//   - code: stable machine-readable short code (e.g. "NOT_FOUND").
//   - detail: explanation of the specific error.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	reqID := ""
	if r != nil {
		instance = r.URL.EscapedPath()
		reqID = log.RequestIDFromContext(r.Context())
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
		w.Header().Set(HeaderRequestID, reqID)
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code":
			log.L().Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// Status maps an engine error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidIdentifier), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError classifies err and writes the matching problem. Server errors
// are logged with the request id and their detail is withheld.
func WriteError(w http.ResponseWriter, r *http.Request, component string, err error) {
	status := Status(err)
	code := domain.ErrorClass(err)

	if status >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), component)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "request.failed").
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
		Write(w, r, status, component+"/internal", http.StatusText(status), code, "", nil)
		return
	}

	var extra map[string]any
	var verr *validation.Error
	if errors.As(err, &verr) {
		extra = map[string]any{"fields": verr.Fields}
	}
	Write(w, r, status, component+"/"+strings.ToLower(code), http.StatusText(status), code, err.Error(), extra)
}
