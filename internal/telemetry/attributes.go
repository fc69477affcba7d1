// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	ProfileIDKey = "reelbox.profile_id"
	VideoIDKey   = "reelbox.video_id"

	CatalogModeKey   = "catalog.mode"
	CatalogOffsetKey = "catalog.offset"
	CatalogLimitKey  = "catalog.limit"
	CatalogTotalKey  = "catalog.total"
	CatalogSearchKey = "catalog.search"

	RangeStartKey = "stream.range_start"
	RangeEndKey   = "stream.range_end"
	FileSizeKey   = "stream.file_size"

	RecommendSeedsKey      = "recommend.seeds"
	RecommendCandidatesKey = "recommend.candidates"
	RecommendCacheHitKey   = "recommend.cache_hit"
	RecommendFallbackKey   = "recommend.fallback"

	ErrorTypeKey = "error.type"
)

// CatalogAttributes describes a feed query window.
func CatalogAttributes(mode string, offset, limit int, search string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(CatalogModeKey, mode),
		attribute.Int(CatalogOffsetKey, offset),
		attribute.Int(CatalogLimitKey, limit),
	}
	if search != "" {
		attrs = append(attrs, attribute.Bool(CatalogSearchKey, true))
	}
	return attrs
}

// RangeAttributes describes the byte window being served.
func RangeAttributes(start, end, size int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(RangeStartKey, start),
		attribute.Int64(RangeEndKey, end),
		attribute.Int64(FileSizeKey, size),
	}
}

// RecordError marks span failed with err classified by class.
func RecordError(span trace.Span, err error, class string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(ErrorTypeKey, class))
	span.SetStatus(codes.Error, class)
}
