/*
Package config loads the supervisor's immutable runtime parameters.

The on-disk format is a shell-style KEY=value file (the same file the
installer sources), parsed with Viper's env config type and layered
over complete defaults; a bare install runs with no config file at
all. The resulting Config is read-only for the lifetime of the run;
changing a knob means restarting the watchdog.

# Recognized Keys

Tick and control:

	CHECK_INTERVAL, COOLDOWN, BACKOFF_INITIAL, BACKOFF_MAX,
	BACKOFF_MULTIPLIER

Endpoints:

	HEALTH_CHECK_URL, PING_TARGET, PING_TIMEOUT, DISCORD_CHECK_URL,
	PROXY_URL, LLM_API_CHECK_URL, PROXY_CHECK_INTERVAL,
	PROXY_FAIL_THRESHOLD, TUN_SETTLE

Heartbeat:

	HEARTBEAT_CHECK_INTERVAL, HEARTBEAT_THRESHOLD_MIN,
	AGENT_WORKSPACES (space-separated name:path pairs, ~ expanded)

Safeguard:

	CONFIG_PATH, ROLLBACK_TIMEOUT, SNAPSHOT_RETENTION

Process control:

	SERVICE_LABEL, PROCESS_PATTERN (defaults to the service label)

Backup archiver:

	BACKUP_INTERVAL, BACKUP_PATHS, BACKUP_RETENTION

Logging and state:

	MAX_LOG_LINES, GATEWAY_LOG_PATH, LOG_LEVEL, LOG_JSON, LOG_FILE,
	STATE_DIR

Durations are given in seconds; HEARTBEAT_THRESHOLD_MIN in minutes.

# Usage

	cfg, err := config.Load("/etc/openclaw/watchdog.conf")
	if err != nil {
		log.Fatal(err.Error())
	}

Validate runs as part of Load and rejects parameter combinations the
engine cannot honor (non-positive tick, multiplier at or below 1,
empty service label).
*/
package config
