package health

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/probe"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

const (
	// fatalProbeGap separates the two liveness probes that confirm a
	// dead gateway
	fatalProbeGap = 5 * time.Second

	// postRestartPolls × postRestartGap bound the post-restart health
	// wait
	postRestartPolls = 6
	postRestartGap   = 5 * time.Second
)

// Options configures a Monitor
type Options struct {
	Params          Params
	Settle          time.Duration
	ProxyCheckEvery int
}

// Monitor owns the gateway-health decision state. Each Tick samples
// signals through the prober, runs the pure classifier, and executes
// at most one restart.
type Monitor struct {
	opts    Options
	sampler *probe.Sampler
	broker  *events.Broker
	logger  zerolog.Logger

	st   State
	tick int

	// injected for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewMonitor creates a gateway health monitor
func NewMonitor(opts Options, sampler *probe.Sampler, broker *events.Broker) *Monitor {
	if opts.ProxyCheckEvery <= 0 {
		opts.ProxyCheckEvery = 1
	}
	return &Monitor{
		opts:    opts,
		sampler: sampler,
		broker:  broker,
		logger:  log.WithComponent("health"),
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// State returns a copy of the current decision state
func (m *Monitor) State() State {
	return m.st
}

// Tick runs one supervision pass. At most one restart is issued per
// call.
func (m *Monitor) Tick(ctx context.Context) {
	m.tick++
	sig := m.sampleSignals(ctx)

	action, next := Classify(m.opts.Params, m.st, sig, m.now())
	m.st = next
	m.observeTransition(action, sig)

	switch action.Kind {
	case types.ActionNone:
		return

	case types.ActionDefer:
		if action.Detail != "" {
			m.logger.Debug().Str("detail", action.Detail).Msg("Deferring")
		}
		return

	case types.ActionSettleRecheck:
		m.settleAndDecide(ctx, action.Reason)
		return

	case types.ActionRestart:
		m.executeRestart(ctx, action.Reason)
		return
	}
}

// RequestRestart lets other modules (heartbeat staleness, config
// rollback) ask for a restart under the normal cooldown gate. Reports
// whether a restart was actually issued.
func (m *Monitor) RequestRestart(ctx context.Context, reason types.RestartReason) bool {
	if !m.st.Cooldown.Allow(m.now(), m.opts.Params.Cooldown) {
		m.logger.Warn().
			Str("reason", string(reason)).
			Msg("Restart request suppressed by cooldown")
		return false
	}
	m.executeRestart(ctx, reason)
	return true
}

// sampleSignals takes one consistent reading. Liveness gets the fatal
// double-probe: a dead first scan is only believed after a second scan
// five seconds later agrees.
func (m *Monitor) sampleSignals(ctx context.Context) types.Signals {
	liveness := m.sampler.Liveness()
	if !liveness {
		m.sleep(fatalProbeGap)
		liveness = m.sampler.Liveness()
	}

	sig := types.Signals{
		Liveness:          liveness,
		HTTPHealthy:       m.sampler.HTTPHealthy(ctx),
		Online:            m.sampler.Online(ctx),
		ExternalReachable: m.sampler.ExternalReachable(ctx),
		UptimeSeconds:     m.sampler.Uptime(),
		ProxyOK:           true,
		SampledAt:         m.now(),
	}

	if m.opts.Params.ProxyConfigured && m.tick%m.opts.ProxyCheckEvery == 0 {
		sig.ProxyChecked = true
		sig.ProxyOK = m.sampler.ProxyOK(ctx)
	}
	return sig
}

// settleAndDecide waits out the settle interval, re-samples, and either
// issues the one-shot recovery restart or defers to the next tick.
func (m *Monitor) settleAndDecide(ctx context.Context, reason types.RestartReason) {
	m.logger.Info().
		Str("reason", string(reason)).
		Dur("settle", m.opts.Settle).
		Msg("Transition observed, settling before recheck")
	m.sleep(m.opts.Settle)

	sig := types.Signals{
		Online:            m.sampler.Online(ctx),
		ExternalReachable: m.sampler.ExternalReachable(ctx),
		SampledAt:         m.now(),
	}

	action, next := ConfirmSettle(m.opts.Params, m.st, reason, sig, m.now())
	m.st = next

	if action.Kind != types.ActionRestart {
		m.logger.Info().
			Str("reason", string(reason)).
			Str("detail", action.Detail).
			Msg("Post-settle restart deferred")
		return
	}
	m.executeRestart(ctx, reason)
}

// executeRestart invokes the service-manager restart and polls the
// health endpoint for recovery. last_restart advances unconditionally
// after invocation; failed restarts count against the cooldown too.
func (m *Monitor) executeRestart(ctx context.Context, reason types.RestartReason) {
	episode := uuid.New().String()
	logger := m.logger.With().
		Str("restart_id", episode).
		Str("reason", string(reason)).
		Logger()

	logger.Warn().Msg("Restarting gateway")
	m.broker.Emit(events.EventRestartIssued, "gateway restart issued", map[string]string{
		"reason":     string(reason),
		"restart_id": episode,
	})

	err := m.sampler.Prober.ServiceRestart(ctx, m.sampler.Endpoints.ServiceLabel)
	m.st = m.st.NoteRestart(m.now())
	if err != nil {
		logger.Error().Err(err).Msg("Service restart invocation failed")
	}

	for i := 0; i < postRestartPolls; i++ {
		m.sleep(postRestartGap)
		if m.sampler.HTTPHealthy(ctx) {
			logger.Info().Int("polls", i+1).Msg("Gateway healthy after restart")
			m.broker.Emit(events.EventRestartSucceeded, "gateway healthy after restart", map[string]string{
				"reason":     string(reason),
				"restart_id": episode,
			})
			return
		}
	}

	// Not healthy within the poll window; the next tick re-evaluates
	// under cooldown.
	logger.Error().Msg("Gateway not healthy after restart")
	m.broker.Emit(events.EventRestartFailed, "gateway not healthy after restart", map[string]string{
		"reason":     string(reason),
		"restart_id": episode,
	})
}

// observeTransition publishes edge events the classifier surfaced
func (m *Monitor) observeTransition(action types.Action, sig types.Signals) {
	switch {
	case action.Detail == "network down":
		m.logger.Warn().Msg("Network down, holding all restarts")
		m.broker.Emit(events.EventNetworkDown, "network down", nil)
	case action.Kind == types.ActionSettleRecheck && action.Reason == types.RestartReasonNetworkRecovered:
		m.broker.Emit(events.EventNetworkRecovered, "network recovered", nil)
	case action.Kind == types.ActionSettleRecheck && action.Reason == types.RestartReasonWake:
		m.logger.Warn().
			Float64("uptime_s", sig.UptimeSeconds).
			Msg("Wake or reboot detected")
		m.broker.Emit(events.EventWakeDetected, "wake detected", nil)
	}
}
