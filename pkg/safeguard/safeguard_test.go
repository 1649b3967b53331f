package safeguard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/events"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

type harness struct {
	sg       *Safeguard
	paths    state.Paths
	config   string
	healthy  bool
	restarts []types.RestartReason
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	paths := state.NewPaths(filepath.Join(root, "wd"))
	require.NoError(t, paths.Ensure())

	config := filepath.Join(root, "openclaw.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"fleet":"v1"}`), 0644))

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	h := &harness{paths: paths, config: config, healthy: true, clock: time.Unix(100000, 0)}
	h.sg = New(Options{
		ConfigPath:      config,
		Paths:           paths,
		RollbackTimeout: 300 * time.Second,
		Retention:       5,
	},
		func(ctx context.Context) bool { return h.healthy },
		func(ctx context.Context, reason types.RestartReason) bool {
			h.restarts = append(h.restarts, reason)
			return true
		},
		broker,
	)
	h.sg.now = func() time.Time { return h.clock }
	h.sg.sleep = func(d time.Duration) { h.clock = h.clock.Add(d) }
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	h.sg.Tick(context.Background())
}

func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func (h *harness) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(h.config, []byte(content), 0644))
}

func (h *harness) configBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(h.config)
	require.NoError(t, err)
	return data
}

func (h *harness) ticket(t *testing.T) *Ticket {
	t.Helper()
	ticket, err := LoadTicket(h.paths.TicketFile())
	require.NoError(t, err)
	return ticket
}

func (h *harness) checksum(t *testing.T) string {
	t.Helper()
	sum, err := state.ReadChecksum(h.paths.ChecksumFile())
	require.NoError(t, err)
	return sum
}

func configHash(t *testing.T, path string) string {
	t.Helper()
	sum, err := state.SHA256File(path)
	require.NoError(t, err)
	return sum
}

func TestBootstrapRecordsChecksumWithoutArming(t *testing.T) {
	h := newHarness(t)

	h.tick(t)

	assert.Equal(t, configHash(t, h.config), h.checksum(t))
	assert.Nil(t, h.ticket(t))
}

func TestUnchangedConfigIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.tick(t)
	sum := h.checksum(t)

	h.advance(15 * time.Second)
	h.tick(t)
	h.advance(15 * time.Second)
	h.tick(t)

	assert.Equal(t, sum, h.checksum(t))
	assert.Nil(t, h.ticket(t))
	list, err := h.sg.Snapshots().List()
	require.NoError(t, err)
	assert.Empty(t, list, "no change means no snapshots")
}

func TestChangeArmsTicket(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	h.writeConfig(t, `{"fleet":"v2"}`)
	armTime := h.clock
	h.tick(t)

	ticket := h.ticket(t)
	require.NotNil(t, ticket)
	// deadline = detection + 10s settle + rollback timeout
	assert.Equal(t, armTime.Add(10*time.Second).Add(300*time.Second).Unix(), ticket.Deadline.Unix())

	// checksum now covers the post-change content
	assert.Equal(t, configHash(t, h.config), h.checksum(t))

	// the referenced snapshot exists and is readable
	snap, err := os.ReadFile(ticket.SnapshotPath)
	require.NoError(t, err)
	assert.Equal(t, `{"fleet":"v2"}`, string(snap))
}

// Good config change: gateway healthy through the window; ticket
// auto-confirms at the deadline and no restart is issued.
func TestGoodChangeAutoConfirms(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	h.writeConfig(t, `{"fleet":"v2"}`)
	h.tick(t)
	require.NotNil(t, h.ticket(t))

	// healthy ticks inside the window keep the ticket
	for i := 0; i < 3; i++ {
		h.advance(15 * time.Second)
		h.tick(t)
		require.NotNil(t, h.ticket(t), "tick %d still inside window", i)
	}

	// past the deadline the change confirms
	h.advance(400 * time.Second)
	h.tick(t)

	assert.Nil(t, h.ticket(t))
	assert.Empty(t, h.restarts, "the safeguard must not restart a healthy gateway")
	assert.Equal(t, configHash(t, h.config), h.checksum(t))
}

// Bad config change: gateway unhealthy inside the window; immediate
// rollback, config byte-equal to the armed snapshot, restart with
// reason config-rollback, ticket cleared.
func TestBadChangeRollsBack(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	h.writeConfig(t, `{"fleet":"broken"}`)
	h.tick(t)
	ticket := h.ticket(t)
	require.NotNil(t, ticket)
	snapshotContent, err := os.ReadFile(ticket.SnapshotPath)
	require.NoError(t, err)

	h.advance(30 * time.Second)
	h.healthy = false
	h.tick(t)

	assert.Nil(t, h.ticket(t), "ticket consumed by rollback")
	assert.Equal(t, snapshotContent, h.configBytes(t))
	assert.Equal(t, configHash(t, h.config), h.checksum(t))
	require.Len(t, h.restarts, 1)
	assert.Equal(t, types.RestartReasonConfigRollback, h.restarts[0])

	// the discarded file was kept as a broken snapshot
	list, err := h.sg.Snapshots().List()
	require.NoError(t, err)
	var brokenSeen bool
	for _, info := range list {
		if info.Reason == types.SnapshotReasonBroken {
			brokenSeen = true
		}
	}
	assert.True(t, brokenSeen)
}

// Crash during the armed window: a new Safeguard instance re-enters
// Armed-Unseen with the original absolute deadline and auto-confirms at
// the originally scheduled time.
func TestCrashDuringArmedWindowKeepsDeadline(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	h.writeConfig(t, `{"fleet":"v2"}`)
	h.tick(t)
	original := h.ticket(t)
	require.NotNil(t, original)

	// "crash": rebuild the safeguard over the same state dir
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	reborn := New(Options{
		ConfigPath:      h.config,
		Paths:           h.paths,
		RollbackTimeout: 300 * time.Second,
		Retention:       5,
	},
		func(ctx context.Context) bool { return true },
		func(ctx context.Context, reason types.RestartReason) bool { return true },
		broker,
	)
	clock := h.clock.Add(60 * time.Second) // 4 ticks later
	reborn.now = func() time.Time { return clock }
	reborn.sleep = func(d time.Duration) { clock = clock.Add(d) }

	reborn.Tick(context.Background())
	reloaded := h.ticket(t)
	require.NotNil(t, reloaded, "ticket survives the crash")
	assert.Equal(t, original.Deadline.Unix(), reloaded.Deadline.Unix())
	assert.Equal(t, original.SnapshotPath, reloaded.SnapshotPath)

	clock = original.Deadline.Add(time.Second)
	reborn.Tick(context.Background())
	assert.Nil(t, h.ticket(t), "auto-confirm at the originally scheduled time")
}

func TestConfirmIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.tick(t)
	h.writeConfig(t, `{"fleet":"v2"}`)
	h.tick(t)

	confirmed, err := h.sg.Confirm()
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.Nil(t, h.ticket(t))

	confirmed, err = h.sg.Confirm()
	require.NoError(t, err)
	assert.False(t, confirmed, "second confirm is a no-op")
}

func TestSnapshotRollbackRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	original := h.configBytes(t)
	path, err := h.sg.Snapshot(types.SnapshotReasonManual)
	require.NoError(t, err)

	h.writeConfig(t, `{"fleet":"scribbled"}`)

	require.NoError(t, h.sg.Rollback(context.Background(), path))
	assert.Equal(t, original, h.configBytes(t),
		"rollback restores the file byte-identical to snapshot time")
}

func TestRollbackWithNothingAvailable(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	err := h.sg.Rollback(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRollbackDefaultsToNewestSnapshot(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	_, err := h.sg.Snapshot(types.SnapshotReasonManual)
	require.NoError(t, err)
	h.advance(time.Second)
	h.writeConfig(t, `{"fleet":"v2"}`)
	newest, err := h.sg.Snapshot(types.SnapshotReasonManual)
	require.NoError(t, err)
	h.writeConfig(t, `{"fleet":"garbage"}`)

	require.NoError(t, h.sg.Rollback(context.Background(), ""))

	want, err := os.ReadFile(newest)
	require.NoError(t, err)
	assert.Equal(t, want, h.configBytes(t))
}

func TestMissingConfigIsNoOp(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(h.config))

	h.tick(t) // must not panic or arm anything
	assert.Nil(t, h.ticket(t))
}

func TestStatusReflectsArmedTicket(t *testing.T) {
	h := newHarness(t)
	h.tick(t)

	st, err := h.sg.Status()
	require.NoError(t, err)
	assert.False(t, st.Armed)
	assert.NotEmpty(t, st.ChecksumPrefix)

	h.writeConfig(t, `{"fleet":"v2"}`)
	h.tick(t)

	st, err = h.sg.Status()
	require.NoError(t, err)
	assert.True(t, st.Armed)
	assert.Equal(t, 1, st.SnapshotCount)
	assert.NotEmpty(t, st.LatestSnapshot)
}
