/*
Package log provides structured logging for the watchdog using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. When a log file is
configured, output is size-rotated through lumberjack so the supervisor
never fills a disk on its own.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages (production default)
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithReason: Add restart reason context

File Trim:
  - TrimFile keeps the newest half of a line budget in a log file the
    watchdog does not own (the gateway's), via temp file + rename

# Usage

Initializing the Logger:

	// Console output (interactive)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

	// Rotated file output (supervised run)
	log.Init(log.Config{
		Level:     log.InfoLevel,
		File:      "/home/claw/.openclaw-watchdog/watchdog.log",
		MaxSizeMB: 10,
	})

Structured Logging:

	log.Logger.Info().
		Str("reason", "network-recovered").
		Int("attempt", 2).
		Msg("Restart authorized")

Component Loggers:

	healthLog := log.WithComponent("health")
	healthLog.Warn().Bool("online", false).Msg("Network down, deferring checks")

# Log Output Examples

JSON format:

	{"level":"info","component":"safeguard","time":"2026-07-30T10:30:00Z","message":"Rollback ticket armed"}

Console format:

	2026-07-30T10:30:00Z INF Rollback ticket armed component=safeguard

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized in main before
    any module starts
  - Accessible from all packages without plumbing

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Always use .Err(err) for error objects

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Lumberjack rotation: https://github.com/natefinch/lumberjack
*/
package log
