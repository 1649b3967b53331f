package safeguard

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

// changeSettle is the pause between detecting a config change and
// arming the ticket, giving the external actor time to finish its own
// gateway restart before health observation starts.
const changeSettle = 10 * time.Second

// HealthFn returns a fresh liveness ∧ http-health sample. The armed
// machine always re-samples; it never reuses what the health monitor
// saw earlier in the same tick.
type HealthFn func(ctx context.Context) bool

// RestartFn requests a cooldown-gated gateway restart and reports
// whether one was issued
type RestartFn func(ctx context.Context, reason types.RestartReason) bool

// Options configures a Safeguard
type Options struct {
	ConfigPath      string
	Paths           state.Paths
	RollbackTimeout time.Duration
	Retention       int
}

// Safeguard makes every mutation of the watched config reversible: it
// detects changes by content hash, snapshots, arms a durable
// confirm-or-revert ticket, and rolls back when the gateway goes
// unhealthy inside the window.
type Safeguard struct {
	opts      Options
	health    HealthFn
	restart   RestartFn
	broker    *events.Broker
	logger    zerolog.Logger
	snapshots *SnapshotStore

	// healthySince marks the Armed-Healthy transition. In-memory only:
	// a restarted supervisor re-enters Armed-Unseen.
	healthySince time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Safeguard
func New(opts Options, health HealthFn, restart RestartFn, broker *events.Broker) *Safeguard {
	return &Safeguard{
		opts:      opts,
		health:    health,
		restart:   restart,
		broker:    broker,
		logger:    log.WithComponent("safeguard"),
		snapshots: NewSnapshotStore(opts.Paths.SnapshotsDir(), opts.ConfigPath, opts.Retention),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Snapshots exposes the snapshot store
func (s *Safeguard) Snapshots() *SnapshotStore {
	return s.snapshots
}

// Tick runs one safeguard pass: advance the armed machine if a ticket
// exists, otherwise look for a config change. Failures are logged and
// leave existing state untouched; the tick loop never aborts.
func (s *Safeguard) Tick(ctx context.Context) {
	ticket, err := LoadTicket(s.opts.Paths.TicketFile())
	if err != nil {
		s.logger.Error().Err(err).Msg("Unreadable rollback ticket")
		return
	}
	if ticket != nil {
		s.tickArmed(ctx, ticket)
		return
	}
	s.detectChange()
}

// detectChange compares the config's content hash against the recorded
// checksum and arms a ticket when they diverge
func (s *Safeguard) detectChange() {
	if _, err := os.Stat(s.opts.ConfigPath); os.IsNotExist(err) {
		// Nothing to watch; the gateway has no config yet
		return
	}

	sum, err := state.SHA256File(s.opts.ConfigPath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Hashing config failed")
		return
	}

	prior, err := state.ReadChecksum(s.opts.Paths.ChecksumFile())
	if err != nil {
		s.logger.Error().Err(err).Msg("Reading recorded checksum failed")
		return
	}

	if prior == "" {
		// First run: record and trust the current content
		if err := state.WriteChecksum(s.opts.Paths.ChecksumFile(), sum); err != nil {
			s.logger.Error().Err(err).Msg("Recording bootstrap checksum failed")
			return
		}
		s.logger.Info().Str("checksum", shortSum(sum)).Msg("Config checksum bootstrapped")
		return
	}

	if sum == prior {
		return
	}

	s.logger.Warn().
		Str("old", shortSum(prior)).
		Str("new", shortSum(sum)).
		Msg("Config change detected")

	// The previous content is already gone; this snapshot captures the
	// new file. True prior versions live in earlier snapshot history.
	snapPath, err := s.snapshots.Take(s.opts.ConfigPath, types.SnapshotReasonPreChange, s.now(), "")
	if err != nil {
		// No snapshot, no ticket: a safety net that cannot restore
		// anything must not arm
		s.logger.Error().Err(err).Msg("Pre-change snapshot failed, not arming")
		return
	}
	s.broker.Emit(events.EventSnapshotTaken, "pre-change snapshot", map[string]string{"path": snapPath})

	// Whoever edited the config is probably restarting the gateway
	// right now; give it a moment before health observation begins.
	s.sleep(changeSettle)

	ticket := &Ticket{
		Deadline:     s.now().Add(s.opts.RollbackTimeout),
		SnapshotPath: snapPath,
	}
	if err := SaveTicket(s.opts.Paths.TicketFile(), ticket); err != nil {
		s.logger.Error().Err(err).Msg("Arming rollback ticket failed")
		return
	}
	if err := state.WriteChecksum(s.opts.Paths.ChecksumFile(), sum); err != nil {
		s.logger.Error().Err(err).Msg("Persisting new checksum failed")
	}
	s.healthySince = time.Time{}

	s.logger.Warn().
		Time("deadline", ticket.Deadline).
		Str("snapshot", snapPath).
		Msg("Rollback ticket armed")
	s.broker.Emit(events.EventTicketArmed, "rollback ticket armed", map[string]string{
		"deadline": ticket.Deadline.Format(time.RFC3339),
		"snapshot": snapPath,
	})
}

// tickArmed advances the armed-state machine with a fresh health sample
func (s *Safeguard) tickArmed(ctx context.Context, ticket *Ticket) {
	if !s.health(ctx) {
		// Unhealthy inside the window: revert now, regardless of how
		// much deadline remains
		s.logger.Warn().Msg("Gateway unhealthy inside rollback window, reverting")
		if err := s.rollbackTo(ctx, ticket.SnapshotPath); err != nil {
			s.logger.Error().Err(err).Msg("Rollback failed")
		}
		return
	}

	now := s.now()
	if s.healthySince.IsZero() {
		s.healthySince = now
		s.logger.Info().
			Time("deadline", ticket.Deadline).
			Msg("Gateway healthy under armed ticket")
	}

	if !now.Before(ticket.Deadline) {
		if err := RemoveTicket(s.opts.Paths.TicketFile()); err != nil {
			s.logger.Error().Err(err).Msg("Auto-confirm failed")
			return
		}
		s.healthySince = time.Time{}
		s.logger.Info().Msg("Config change auto-confirmed")
		s.broker.Emit(events.EventTicketConfirmed, "config change auto-confirmed", map[string]string{"mode": "auto"})
	}
}

// Confirm removes the armed ticket, accepting the config change.
// Idempotent: confirming with nothing armed reports false and changes
// nothing. Snapshots stay.
func (s *Safeguard) Confirm() (bool, error) {
	ticket, err := LoadTicket(s.opts.Paths.TicketFile())
	if err != nil {
		return false, err
	}
	if ticket == nil {
		return false, nil
	}
	if err := RemoveTicket(s.opts.Paths.TicketFile()); err != nil {
		return false, err
	}
	s.healthySince = time.Time{}
	s.logger.Info().Msg("Config change confirmed")
	s.broker.Emit(events.EventTicketConfirmed, "config change confirmed", map[string]string{"mode": "manual"})
	return true, nil
}

// Rollback restores the config from a snapshot: the given path when
// set, else the armed ticket's, else the newest retained snapshot.
func (s *Safeguard) Rollback(ctx context.Context, snapshotPath string) error {
	ticket, err := LoadTicket(s.opts.Paths.TicketFile())
	if err != nil {
		s.logger.Error().Err(err).Msg("Unreadable ticket during rollback")
	}

	if snapshotPath == "" {
		if ticket != nil {
			snapshotPath = ticket.SnapshotPath
		} else {
			newest, err := s.snapshots.Newest()
			if err != nil {
				return err
			}
			snapshotPath = newest.Path
		}
	}
	if _, err := os.Stat(snapshotPath); err != nil {
		return ErrNoSnapshot
	}
	return s.rollbackTo(ctx, snapshotPath)
}

// rollbackTo copies the snapshot over the config, rewrites the
// checksum, clears the ticket, and requests a gateway restart
func (s *Safeguard) rollbackTo(ctx context.Context, snapshotPath string) error {
	// Keep the discarded file around for the post-mortem
	protect := snapshotPath
	if broken, err := s.snapshots.Take(s.opts.ConfigPath, types.SnapshotReasonBroken, s.now(), protect); err != nil {
		s.logger.Warn().Err(err).Msg("Could not snapshot the broken config")
	} else {
		s.broker.Emit(events.EventSnapshotTaken, "broken config snapshot", map[string]string{"path": broken})
	}

	if err := state.CopyFile(snapshotPath, s.opts.ConfigPath); err != nil {
		return err
	}

	sum, err := state.SHA256File(s.opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := state.WriteChecksum(s.opts.Paths.ChecksumFile(), sum); err != nil {
		return err
	}

	if err := RemoveTicket(s.opts.Paths.TicketFile()); err != nil {
		return err
	}
	s.healthySince = time.Time{}

	s.logger.Warn().
		Str("snapshot", snapshotPath).
		Str("checksum", shortSum(sum)).
		Msg("Config rolled back")
	s.broker.Emit(events.EventRollbackFired, "config rolled back", map[string]string{"snapshot": snapshotPath})

	s.restart(ctx, types.RestartReasonConfigRollback)
	return nil
}

// Snapshot takes a reason-tagged snapshot of the current config
func (s *Safeguard) Snapshot(reason types.SnapshotReason) (string, error) {
	protect := ""
	if ticket, err := LoadTicket(s.opts.Paths.TicketFile()); err == nil && ticket != nil {
		protect = ticket.SnapshotPath
	}
	path, err := s.snapshots.Take(s.opts.ConfigPath, reason, s.now(), protect)
	if err != nil {
		return "", err
	}
	s.broker.Emit(events.EventSnapshotTaken, "snapshot taken", map[string]string{
		"path":   path,
		"reason": string(reason),
	})
	return path, nil
}

// Status summarizes the safeguard for the status command
type Status struct {
	ChecksumPrefix string
	Armed          bool
	Deadline       time.Time
	SnapshotCount  int
	LatestSnapshot string
}

// Status reads the persisted safeguard state
func (s *Safeguard) Status() (Status, error) {
	var st Status

	sum, err := state.ReadChecksum(s.opts.Paths.ChecksumFile())
	if err != nil {
		return st, err
	}
	st.ChecksumPrefix = shortSum(sum)

	ticket, err := LoadTicket(s.opts.Paths.TicketFile())
	if err != nil {
		return st, err
	}
	if ticket != nil {
		st.Armed = true
		st.Deadline = ticket.Deadline
	}

	list, err := s.snapshots.List()
	if err != nil {
		return st, err
	}
	st.SnapshotCount = len(list)
	if len(list) > 0 {
		st.LatestSnapshot = list[0].Path
	}
	return st, nil
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
