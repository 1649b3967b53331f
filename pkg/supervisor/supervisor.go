package supervisor

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/backup"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/config"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/health"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/heartbeat"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/probe"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/safeguard"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
)

// logTrimEveryTicks spaces out the gateway log trim (~10 minutes at
// the default tick)
const logTrimEveryTicks = 40

// Supervisor is the single cooperative loop driving all four modules.
// Module order per tick: gateway health first (wake and network gating
// must precede everything), then the heartbeat probe, then the config
// safeguard (which re-samples health fresh), then housekeeping.
type Supervisor struct {
	cfg    *config.Config
	paths  state.Paths
	broker *events.Broker
	logger zerolog.Logger

	monitor   *health.Monitor
	heartbeat *heartbeat.Checker
	safeguard *safeguard.Safeguard
	archiver  *backup.Archiver

	ticks int
}

// New wires a supervisor over the given prober
func New(cfg *config.Config, prober probe.Prober) *Supervisor {
	paths := state.NewPaths(cfg.StateDir)
	broker := events.NewBroker()

	sampler := probe.NewSampler(prober, probe.Endpoints{
		HealthURL:      cfg.HealthCheckURL,
		PingTarget:     cfg.PingTarget,
		PingTimeout:    cfg.PingTimeout,
		ExternalURL:    cfg.DiscordCheckURL,
		ProxyURL:       cfg.ProxyURL,
		ProxyProbeURL:  cfg.LLMAPICheckURL,
		ProcessPattern: cfg.ProcessPattern,
		ServiceLabel:   cfg.ServiceLabel,
	})

	monitor := health.NewMonitor(health.Options{
		Params: health.Params{
			TickInterval:       cfg.CheckInterval,
			BackoffInitial:     cfg.BackoffInitial,
			BackoffMax:         cfg.BackoffMax,
			BackoffMultiplier:  cfg.BackoffMultiplier,
			Cooldown:           cfg.Cooldown,
			ProxyConfigured:    cfg.ProxyURL != "",
			ProxyFailThreshold: cfg.ProxyFailThreshold,
		},
		Settle:          cfg.TunSettle,
		ProxyCheckEvery: cfg.ProxyCheckInterval,
	}, sampler, broker)

	hb := heartbeat.New(heartbeat.Options{
		Agents:        cfg.AgentWorkspaces,
		ThresholdMin:  cfg.HeartbeatThresholdMin,
		CheckInterval: cfg.HeartbeatCheckInterval,
	}, sampler, monitor.RequestRestart, broker)

	sg := safeguard.New(safeguard.Options{
		ConfigPath:      cfg.ConfigPath,
		Paths:           paths,
		RollbackTimeout: cfg.RollbackTimeout,
		Retention:       cfg.SnapshotRetention,
	}, sampler.GatewayHealthy, monitor.RequestRestart, broker)

	archiver := backup.New(backup.Options{
		Paths:     cfg.BackupPaths,
		Dir:       paths.BackupsDir(),
		Interval:  cfg.BackupInterval,
		Retention: cfg.BackupRetention,
	}, broker)

	return &Supervisor{
		cfg:       cfg,
		paths:     paths,
		broker:    broker,
		logger:    log.WithComponent("supervisor"),
		monitor:   monitor,
		heartbeat: hb,
		safeguard: sg,
		archiver:  archiver,
	}
}

// Safeguard exposes the safeguard for the CLI verbs that share its
// state directory
func (s *Supervisor) Safeguard() *safeguard.Safeguard {
	return s.safeguard
}

// Backup exposes the archiver for the status command
func (s *Supervisor) Backup() *backup.Archiver {
	return s.archiver
}

// Run drives the tick loop until ctx is cancelled. The pid file is
// held for the duration and released on the way out.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.paths.Ensure(); err != nil {
		return err
	}
	if err := state.AcquirePidFile(s.paths.PidFile()); err != nil {
		return err
	}
	defer func() {
		if err := state.ReleasePidFile(s.paths.PidFile()); err != nil {
			s.logger.Error().Err(err).Msg("Releasing pid file failed")
		}
	}()

	s.broker.Start()
	defer s.broker.Stop()
	s.attachLogSink()

	s.archiver.Start()
	defer s.archiver.Stop()

	s.logger.Info().
		Int("pid", os.Getpid()).
		Dur("tick", s.cfg.CheckInterval).
		Str("service", s.cfg.ServiceLabel).
		Msg("Watchdog started")

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	// immediate first pass so a freshly started watchdog classifies
	// the world before the first full tick elapses
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Watchdog stopping")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs all modules to completion, in order, isolating each from
// the others' failures
func (s *Supervisor) tick(ctx context.Context) {
	s.ticks++

	s.guarded("health", func() { s.monitor.Tick(ctx) })
	s.guarded("heartbeat", func() { s.heartbeat.Tick(ctx) })
	s.guarded("safeguard", func() { s.safeguard.Tick(ctx) })
	s.guarded("backup", func() { s.archiver.Tick(ctx) })

	if s.ticks%logTrimEveryTicks == 0 {
		s.trimGatewayLog()
	}
}

// guarded keeps a panicking module from taking down the loop
func (s *Supervisor) guarded(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("module", name).
				Interface("panic", r).
				Msg("Module panicked, continuing")
		}
	}()
	fn()
}

func (s *Supervisor) trimGatewayLog() {
	if s.cfg.GatewayLogPath == "" || s.cfg.MaxLogLines <= 0 {
		return
	}
	if _, err := os.Stat(s.cfg.GatewayLogPath); os.IsNotExist(err) {
		return
	}
	if err := log.TrimFile(s.cfg.GatewayLogPath, s.cfg.MaxLogLines); err != nil {
		s.logger.Warn().Err(err).Msg("Gateway log trim failed")
	}
}

// attachLogSink mirrors the event stream into the structured log so
// the log doubles as the audit trail
func (s *Supervisor) attachLogSink() {
	sub := s.broker.Subscribe()
	go func() {
		for ev := range sub {
			entry := s.logger.Info().
				Str("event", string(ev.Type)).
				Str("event_id", ev.ID)
			for k, v := range ev.Metadata {
				entry = entry.Str(k, v)
			}
			entry.Msg(ev.Message)
		}
	}()
}
