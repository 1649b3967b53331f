package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.CheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.Cooldown)
	assert.Equal(t, 30*time.Second, cfg.BackoffInitial)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, "http://127.0.0.1:18789/health", cfg.HealthCheckURL)
	assert.Equal(t, "1.1.1.1", cfg.PingTarget)
	assert.Equal(t, 3, cfg.ProxyFailThreshold)
	assert.Equal(t, 4, cfg.ProxyCheckInterval)
	assert.Equal(t, 120.0, cfg.HeartbeatThresholdMin)
	assert.Equal(t, 10, cfg.SnapshotRetention)
	assert.Equal(t, "openclaw-gateway", cfg.ServiceLabel)
	assert.Equal(t, cfg.ServiceLabel, cfg.ProcessPattern,
		"process pattern falls back to the service label")
	assert.Empty(t, cfg.AgentWorkspaces)
	assert.Empty(t, cfg.ProxyURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.conf")
	content := `# supervisor tuning
CHECK_INTERVAL=30
COOLDOWN=120
BACKOFF_MAX=600
PROXY_URL=http://127.0.0.1:7890
AGENT_WORKSPACES="main:/srv/agents/main research:/srv/agents/research"
SERVICE_LABEL=my-gateway
HEARTBEAT_THRESHOLD_MIN=90
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	assert.Equal(t, 2*time.Minute, cfg.Cooldown)
	assert.Equal(t, 10*time.Minute, cfg.BackoffMax)
	assert.Equal(t, "http://127.0.0.1:7890", cfg.ProxyURL)
	assert.Equal(t, "my-gateway", cfg.ServiceLabel)
	assert.Equal(t, 90.0, cfg.HeartbeatThresholdMin)

	require.Len(t, cfg.AgentWorkspaces, 2)
	assert.Equal(t, AgentWorkspace{Name: "main", Path: "/srv/agents/main"}, cfg.AgentWorkspaces[0])
	assert.Equal(t, AgentWorkspace{Name: "research", Path: "/srv/agents/research"}, cfg.AgentWorkspaces[1])
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.CheckInterval)
}

func TestParseWorkspaces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"single pair", "main:/srv/a", 1},
		{"multiple pairs", "a:/x b:/y c:/z", 3},
		{"malformed entries skipped", "nopath: :noname plain a:/ok", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseWorkspaces(tt.input)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".openclaw"), ExpandHome("~/.openclaw"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/absolute/path", ExpandHome("/absolute/path"))
	assert.Equal(t, "relative", ExpandHome("relative"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.CheckInterval = 0 }},
		{"multiplier at 1", func(c *Config) { c.BackoffMultiplier = 1 }},
		{"max below initial", func(c *Config) { c.BackoffMax = c.BackoffInitial - time.Second }},
		{"zero retention", func(c *Config) { c.SnapshotRetention = 0 }},
		{"empty label", func(c *Config) { c.ServiceLabel = "" }},
		{"zero proxy threshold", func(c *Config) { c.ProxyFailThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
