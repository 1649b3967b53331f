/*
Package safeguard implements commit-confirmed protection for the
gateway's configuration file.

The failure mode this guards against is self-inflicted: the agent
fleet can edit its own gateway config, and a bad edit takes the whole
fleet down with nothing left able to fix it. The safeguard makes every
config mutation reversible without a human:

 1. Change detection by content hash each tick.
 2. A snapshot of the file and a durable "armed ticket" with an
    absolute deadline.
 3. While armed, fresh gateway health is sampled every tick. Healthy
    through the deadline: the change auto-confirms. Unhealthy at any
    point: immediate rollback from the snapshot plus a gateway restart
    with reason config-rollback.

# The Ticket Is a File

The confirm-or-revert window must survive the supervisor's own crash;
a safety net held only in process memory is not a safety net. The
ticket is a two-line file (deadline epoch, absolute snapshot path)
written with temp-file-then-rename. On supervisor restart a surviving
ticket re-enters the armed machine in the unseen state with its
original absolute deadline; the healthy-since mark is deliberately
in-memory only.

# Armed-State Machine

	Armed-Unseen   no healthy observation yet
	Armed-Healthy  healthy window began at healthy_since

	healthy && now >= deadline  -> auto-confirm (ticket removed)
	unhealthy (any state)       -> rollback now from the ticket snapshot

# Snapshots

Named <config>-YYYYMMDD-HHMMSS-<reason>.json with reasons pre-change,
manual and broken (the discarded file at rollback time). Retention is
newest-first up to a cap; pruning never deletes the snapshot an armed
ticket references.

The pre-change snapshot holds the NEW content: by detection time the
prior content is already gone from disk. True prior versions come from
earlier snapshot history; rollback without an armed ticket therefore
targets the newest retained snapshot, and the CLI accepts an explicit
snapshot path for anything older.

# Operations

	Tick()            detect / advance / revert (the supervisor calls this after health and heartbeat each tick)
	Confirm()         manual accept; idempotent, no-op when nothing armed
	Rollback(path)    restore from path, the ticket's snapshot, or the newest one
	Snapshot(reason)  manual snapshot, pruned to retention

# Integration Points

  - pkg/health: RestartFn routes rollback restarts through the
    cooldown gate; HealthFn re-samples liveness and HTTP health fresh
  - pkg/state: atomic writes, checksum file, path layout
  - pkg/events: ticket.armed, ticket.confirmed, rollback.fired,
    snapshot.taken
*/
package safeguard
