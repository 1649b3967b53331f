package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AgentWorkspace binds an agent name to its workspace directory
type AgentWorkspace struct {
	Name string
	Path string
}

// Config holds the immutable runtime parameters of one supervisor run.
// Loaded once at startup from a KEY=value file layered over defaults;
// never mutated afterwards.
type Config struct {
	// Tick and restart control
	CheckInterval     time.Duration
	Cooldown          time.Duration
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffMultiplier float64

	// Probe endpoints
	HealthCheckURL     string
	PingTarget         string
	PingTimeout        time.Duration
	DiscordCheckURL    string
	ProxyURL           string
	LLMAPICheckURL     string
	ProxyCheckInterval int // proxy probed every this many ticks
	ProxyFailThreshold int
	TunSettle          time.Duration

	// Agent heartbeat
	HeartbeatCheckInterval time.Duration
	HeartbeatThresholdMin  float64
	AgentWorkspaces        []AgentWorkspace

	// Config safeguard
	ConfigPath        string
	RollbackTimeout   time.Duration
	SnapshotRetention int

	// Gateway process control
	ServiceLabel   string
	ProcessPattern string

	// Backup archiver
	BackupInterval  time.Duration
	BackupPaths     []string
	BackupRetention int

	// Logging
	MaxLogLines    int
	GatewayLogPath string
	LogLevel       string
	LogJSON        bool
	LogFile        string

	// State directory
	StateDir string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CHECK_INTERVAL", 15)
	v.SetDefault("COOLDOWN", 300)
	v.SetDefault("BACKOFF_INITIAL", 30)
	v.SetDefault("BACKOFF_MAX", 480)
	v.SetDefault("BACKOFF_MULTIPLIER", 2.0)

	v.SetDefault("HEALTH_CHECK_URL", "http://127.0.0.1:18789/health")
	v.SetDefault("PING_TARGET", "1.1.1.1")
	v.SetDefault("PING_TIMEOUT", 3)
	v.SetDefault("DISCORD_CHECK_URL", "https://discord.com/api/v10/gateway")
	v.SetDefault("PROXY_URL", "")
	v.SetDefault("LLM_API_CHECK_URL", "https://api.anthropic.com/")
	v.SetDefault("PROXY_CHECK_INTERVAL", 4)
	v.SetDefault("PROXY_FAIL_THRESHOLD", 3)
	v.SetDefault("TUN_SETTLE", 20)

	v.SetDefault("HEARTBEAT_CHECK_INTERVAL", 600)
	v.SetDefault("HEARTBEAT_THRESHOLD_MIN", 120)
	v.SetDefault("AGENT_WORKSPACES", "")

	v.SetDefault("CONFIG_PATH", "~/.openclaw/openclaw.json")
	v.SetDefault("ROLLBACK_TIMEOUT", 300)
	v.SetDefault("SNAPSHOT_RETENTION", 10)

	v.SetDefault("SERVICE_LABEL", "openclaw-gateway")
	v.SetDefault("PROCESS_PATTERN", "")

	v.SetDefault("BACKUP_INTERVAL", 3600)
	v.SetDefault("BACKUP_PATHS", "")
	v.SetDefault("BACKUP_RETENTION", 24)

	v.SetDefault("MAX_LOG_LINES", 10000)
	v.SetDefault("GATEWAY_LOG_PATH", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("STATE_DIR", "~/.openclaw-watchdog")
}

// Load reads the KEY=value config file at path layered over defaults.
// A missing file is not an error: every option has a default and a
// bare install runs on them.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: reading %q: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %q: %w", path, err)
		}
	}

	cfg := &Config{
		CheckInterval:     secs(v.GetInt("CHECK_INTERVAL")),
		Cooldown:          secs(v.GetInt("COOLDOWN")),
		BackoffInitial:    secs(v.GetInt("BACKOFF_INITIAL")),
		BackoffMax:        secs(v.GetInt("BACKOFF_MAX")),
		BackoffMultiplier: v.GetFloat64("BACKOFF_MULTIPLIER"),

		HealthCheckURL:     v.GetString("HEALTH_CHECK_URL"),
		PingTarget:         v.GetString("PING_TARGET"),
		PingTimeout:        secs(v.GetInt("PING_TIMEOUT")),
		DiscordCheckURL:    v.GetString("DISCORD_CHECK_URL"),
		ProxyURL:           v.GetString("PROXY_URL"),
		LLMAPICheckURL:     v.GetString("LLM_API_CHECK_URL"),
		ProxyCheckInterval: v.GetInt("PROXY_CHECK_INTERVAL"),
		ProxyFailThreshold: v.GetInt("PROXY_FAIL_THRESHOLD"),
		TunSettle:          secs(v.GetInt("TUN_SETTLE")),

		HeartbeatCheckInterval: secs(v.GetInt("HEARTBEAT_CHECK_INTERVAL")),
		HeartbeatThresholdMin:  v.GetFloat64("HEARTBEAT_THRESHOLD_MIN"),
		AgentWorkspaces:        parseWorkspaces(v.GetString("AGENT_WORKSPACES")),

		ConfigPath:        ExpandHome(v.GetString("CONFIG_PATH")),
		RollbackTimeout:   secs(v.GetInt("ROLLBACK_TIMEOUT")),
		SnapshotRetention: v.GetInt("SNAPSHOT_RETENTION"),

		ServiceLabel:   v.GetString("SERVICE_LABEL"),
		ProcessPattern: v.GetString("PROCESS_PATTERN"),

		BackupInterval:  secs(v.GetInt("BACKUP_INTERVAL")),
		BackupPaths:     parsePaths(v.GetString("BACKUP_PATHS")),
		BackupRetention: v.GetInt("BACKUP_RETENTION"),

		MaxLogLines:    v.GetInt("MAX_LOG_LINES"),
		GatewayLogPath: ExpandHome(v.GetString("GATEWAY_LOG_PATH")),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogJSON:        v.GetBool("LOG_JSON"),
		LogFile:        ExpandHome(v.GetString("LOG_FILE")),

		StateDir: ExpandHome(v.GetString("STATE_DIR")),
	}

	if cfg.ProcessPattern == "" {
		cfg.ProcessPattern = cfg.ServiceLabel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the engine cannot run with
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("config: CHECK_INTERVAL must be positive")
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("config: backoff bounds invalid (initial %s, max %s)", c.BackoffInitial, c.BackoffMax)
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("config: BACKOFF_MULTIPLIER must be greater than 1, got %g", c.BackoffMultiplier)
	}
	if c.ProxyFailThreshold <= 0 {
		return fmt.Errorf("config: PROXY_FAIL_THRESHOLD must be positive")
	}
	if c.SnapshotRetention <= 0 {
		return fmt.Errorf("config: SNAPSHOT_RETENTION must be positive")
	}
	if c.ServiceLabel == "" {
		return fmt.Errorf("config: SERVICE_LABEL must not be empty")
	}
	return nil
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// parseWorkspaces parses space-separated name:path pairs
func parseWorkspaces(raw string) []AgentWorkspace {
	var out []AgentWorkspace
	for _, field := range strings.Fields(raw) {
		name, path, ok := strings.Cut(field, ":")
		if !ok || name == "" || path == "" {
			continue
		}
		out = append(out, AgentWorkspace{Name: name, Path: ExpandHome(path)})
	}
	return out
}

func parsePaths(raw string) []string {
	var out []string
	for _, field := range strings.Fields(raw) {
		out = append(out, ExpandHome(field))
	}
	return out
}

// ExpandHome resolves a leading ~ against the current user's home
// directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
