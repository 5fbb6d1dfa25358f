// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to the configured output (stderr by default) in text or JSON
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "warn",      // Global log level: off, trace, debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"camera": "debug",  // Per-module overrides
//			"audio":  "info",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("bridge")
//	logger.Info("Port forwarded", "port", 8080)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("session").With("session_id", id)
//	logger.Info("Session started")  // Includes session_id in all logs
//
// # Verbosity
//
// The -v and -q flags shift a visibility level around [DefaultVerbosity];
// [VerbosityLevel] maps it to a level name that overrides the configured one.
//
// # Live reload
//
// [SetLevels] updates the global and per-module levels in place. Loggers
// already returned by [GetLogger] observe the new levels immediately.
//
// # Viewing Logs
//
// On a system with journald:
//
//	journalctl -t dcam -f
//	journalctl -t dcam MODULE=audio
//	journalctl -t dcam SESSION_ID=<uuid>
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	camera = "debug"
//	pipeline = "warn"
package logging
