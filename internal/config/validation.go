// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and watches the reelbox configuration.
package config

import (
	"fmt"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/validation"
)

// Validate checks struct constraints and cross-field rules.
func Validate(cfg AppConfig) error {
	if err := validation.Struct(cfg); err != nil {
		return err
	}
	if cfg.Catalog.DefaultLimit > cfg.Catalog.MaxLimit {
		return fmt.Errorf("%w: catalog.defaultLimit (%d) exceeds catalog.maxLimit (%d)",
			domain.ErrValidation, cfg.Catalog.DefaultLimit, cfg.Catalog.MaxLimit)
	}
	if cfg.Recommend.DefaultLimit > cfg.Recommend.MaxLimit {
		return fmt.Errorf("%w: recommend.defaultLimit (%d) exceeds recommend.maxLimit (%d)",
			domain.ErrValidation, cfg.Recommend.DefaultLimit, cfg.Recommend.MaxLimit)
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("%w: cache.redis.addr is required for the redis backend", domain.ErrValidation)
	}
	return nil
}
