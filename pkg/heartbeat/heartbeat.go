package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/config"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

// stateSubPath is where every agent workspace keeps its heartbeat file
const stateSubPath = "state/heartbeat.json"

// heartbeatFile is the on-disk shape of an agent's heartbeat record
type heartbeatFile struct {
	LastHeartbeat string `json:"last_heartbeat"`
}

// timestampLayouts are tried in order; layouts without an offset are
// read as UTC
var timestampLayouts = []struct {
	layout string
	utc    bool
}{
	{time.RFC3339Nano, false},
	{time.RFC3339, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
}

// ParseTimestamp parses an ISO-8601-like heartbeat timestamp. A
// missing timezone offset means UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, l := range timestampLayouts {
		loc := time.Local
		if l.utc {
			loc = time.UTC
		}
		if ts, err := time.ParseInLocation(l.layout, raw, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("heartbeat: unparseable timestamp %q", raw)
}

// GatewaySignals is the slice of the probe surface this module needs
type GatewaySignals interface {
	Liveness() bool
	HTTPHealthy(ctx context.Context) bool
}

// RestartFn requests a cooldown-gated gateway restart
type RestartFn func(ctx context.Context, reason types.RestartReason) bool

// Options configures a Checker
type Options struct {
	Agents        []config.AgentWorkspace
	ThresholdMin  float64
	CheckInterval time.Duration
}

// Checker detects the "process alive, scheduler dead" failure mode by
// watching per-agent heartbeat files. It never restarts a healthy
// gateway.
type Checker struct {
	opts    Options
	gateway GatewaySignals
	restart RestartFn
	broker  *events.Broker
	logger  zerolog.Logger
	limiter *rate.Limiter

	now func() time.Time
}

// New creates a heartbeat checker. The rate limiter makes Tick a no-op
// until CheckInterval has passed since the previous run.
func New(opts Options, gateway GatewaySignals, restart RestartFn, broker *events.Broker) *Checker {
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Checker{
		opts:    opts,
		gateway: gateway,
		restart: restart,
		broker:  broker,
		logger:  log.WithComponent("heartbeat"),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		now:     time.Now,
	}
}

// Tick runs the staleness check when the rate limit allows. Returns
// nil when the run was skipped or no agents are configured.
func (c *Checker) Tick(ctx context.Context) []types.AgentReport {
	if len(c.opts.Agents) == 0 {
		return nil
	}
	if !c.limiter.Allow() {
		return nil
	}
	return c.Check(ctx)
}

// Check classifies every configured agent's freshness and reacts to
// staleness according to gateway health. Unlike Tick it is not rate
// limited.
func (c *Checker) Check(ctx context.Context) []types.AgentReport {
	now := c.now()
	reports := make([]types.AgentReport, 0, len(c.opts.Agents))
	anyStale := false

	for _, agent := range c.opts.Agents {
		report := c.classify(agent, now)
		if report.Stale {
			anyStale = true
			c.logger.Warn().
				Str("agent", report.Name).
				Float64("stale_minutes", report.StaleMinutes).
				Msg("Agent heartbeat stale")
		}
		if report.Err != nil {
			c.logger.Warn().
				Str("agent", report.Name).
				Err(report.Err).
				Msg("Agent heartbeat unreadable")
		}
		reports = append(reports, report)
	}

	if !anyStale {
		return reports
	}

	liveness := c.gateway.Liveness()
	switch {
	case !liveness:
		// Dead gateway plus stale agents: restart, under the normal
		// cooldown
		c.broker.Emit(events.EventAgentsStale, "stale agents over dead gateway", nil)
		c.restart(ctx, types.RestartReasonAgentsStale)

	case !c.gateway.HTTPHealthy(ctx):
		// The health module owns this case; its backoff ladder is
		// already working the problem
		c.logger.Info().Msg("Stale agents with unhealthy gateway, leaving to health backoff")

	default:
		// Alive and answering yet agents are stale: the internal
		// scheduler is the suspect. Restarting a healthy gateway is a
		// manual call.
		c.logger.Warn().Msg("Stale agents with healthy gateway, possible scheduler failure")
		c.broker.Emit(events.EventAgentsStale, "stale agents over healthy gateway", nil)
	}

	return reports
}

// classify reads and scores one agent's heartbeat file
func (c *Checker) classify(agent config.AgentWorkspace, now time.Time) types.AgentReport {
	report := types.AgentReport{Name: agent.Name, Workspace: agent.Path}

	path := filepath.Join(agent.Path, stateSubPath)
	data, err := os.ReadFile(path)
	if err != nil {
		report.Err = fmt.Errorf("heartbeat: reading %s: %w", path, err)
		return report
	}

	var hb heartbeatFile
	if err := json.Unmarshal(data, &hb); err != nil {
		report.Err = fmt.Errorf("heartbeat: decoding %s: %w", path, err)
		return report
	}

	last, err := ParseTimestamp(hb.LastHeartbeat)
	if err != nil {
		report.Err = err
		return report
	}

	report.LastHeartbeat = last
	report.StaleMinutes = now.Sub(last).Minutes()
	report.Stale = report.StaleMinutes > c.opts.ThresholdMin
	return report
}
