// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8088")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// 0 disables it, which range streaming relies on.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

const minShutdownTimeout = 3 * time.Second

// ServerConfigFor derives the API server settings from the resolved config.
func ServerConfigFor(cfg AppConfig) ServerConfig {
	shutdown := cfg.Server.ShutdownTimeout
	if shutdown < minShutdownTimeout {
		shutdown = minShutdownTimeout
	}
	maxHeader := cfg.Server.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = 1 << 20
	}
	return ServerConfig{
		ListenAddr:      cfg.API.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  maxHeader,
		ShutdownTimeout: shutdown,
	}
}
