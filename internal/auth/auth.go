// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package auth reads the viewer identity forwarded by the gateway and
// guards service-to-service hooks.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/problem"
)

const (
	// HeaderProfileID carries the viewer profile resolved by the gateway.
	HeaderProfileID = "X-Profile-ID"
	// HeaderServiceToken authenticates internal callers.
	HeaderServiceToken = "X-Service-Token"
)

type ctxKey struct{}

// Principal is the acting viewer.
type Principal struct {
	ProfileID string
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal set by RequireProfile.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// ProfileID returns the acting profile id, or "" outside RequireProfile.
func ProfileID(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.ProfileID
}

// RequireProfile rejects requests without a profile (401) or with a
// malformed one (400) and stores the canonical id in the context.
func RequireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderProfileID))
		if raw == "" {
			problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
				"missing "+HeaderProfileID+" header", nil)
			return
		}
		id, err := domain.ParseID(raw)
		if err != nil {
			problem.WriteError(w, r, "auth", err)
			return
		}
		ctx := WithPrincipal(r.Context(), Principal{ProfileID: id})
		ctx = log.ContextWithProfileID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractServiceToken reads X-Service-Token, falling back to a bearer
// Authorization header.
func ExtractServiceToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(HeaderServiceToken)); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// RequireServiceToken guards internal hooks. With no configured token every
// request is refused.
func RequireServiceToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AuthorizeToken(ExtractServiceToken(r), expected) {
				log.WithComponentFromContext(r.Context(), "auth").Warn().
					Str(log.FieldEvent, "auth.service_token_rejected").
					Str(log.FieldPath, r.URL.Path).
					Str(log.FieldRemoteAddr, r.RemoteAddr).
					Msg("service token rejected")
				problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
					"service token required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
