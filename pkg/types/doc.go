/*
Package types defines the shared value types used across the watchdog.

These are plain data structures with no behavior beyond small helpers:
the signal sample consumed by the health classifier, restart and
snapshot reason tags, the classifier's action verdict, and report types
surfaced by the heartbeat probe and the snapshot store.

# Core Types

Signals:
  - One consistent sample of the gateway's observable state
  - Populated by pkg/probe, consumed by pkg/health and pkg/safeguard
  - Probe failures surface as unhealthy values, never as errors

Action:
  - The classifier's verdict for a tick: none, defer, settle-recheck,
    or restart with a RestartReason

RestartReason:
  - Stable string tags recorded in logs and events for every restart
    path (fatal, backoff-exhausted, network-recovered, wake,
    proxy-degraded, agents-stale-gateway-dead, config-rollback, manual)

SnapshotReason:
  - Tags on retained config snapshots: pre-change, manual, broken

# Usage

	sig := sampler.Sample(ctx) // a *probe.Sampler
	if sig.Healthy() {
		// process alive and HTTP stack answering
	}

Types in this package are safe to copy; none hold references to
mutable shared state.
*/
package types
