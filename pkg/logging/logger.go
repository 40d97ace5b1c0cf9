// Copyright (C) 2025 Harshodai (contact@askmukthiguru.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for the guru services.
//
// The package wraps Go's standard slog with a JSON handler configured
// for container deployment: one JSON object per line on stdout, with
// the service name attached to every record so a shared log collector
// can tell the orchestrator and its sidecars apart.
//
// # Basic Usage
//
// Call Setup once in main, then use slog directly everywhere else:
//
//	logging.Setup("orchestrator")
//	slog.Info("Request received", "session_id", sessionID)
//
// # Log Levels
//
// The minimum level is read from LOG_LEVEL (debug, info, warn, error)
// and defaults to info.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. User
// messages may contain personal disclosures; log message lengths and
// intents, not message bodies.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// =============================================================================
// Setup
// =============================================================================

// Setup installs a JSON slog handler as the process-wide default logger.
//
// The service name is attached to every record. The minimum level comes
// from the LOG_LEVEL environment variable and defaults to info.
func Setup(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: LevelFromEnv(),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// LevelFromEnv parses LOG_LEVEL into a slog.Level.
//
// Unknown or empty values return slog.LevelInfo. The value is matched
// case-insensitively against debug, info, warn, warning, and error.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Request-scoped loggers
// =============================================================================

// ForSession returns a logger with the session identifier attached.
//
// Handlers derive one of these at the top of a request so every record
// emitted while serving that conversation carries the session id.
func ForSession(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionID == "" {
		return logger
	}
	return logger.With("session_id", sessionID)
}
