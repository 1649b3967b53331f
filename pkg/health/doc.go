/*
Package health is the watchdog's decision core: the multi-signal
gateway classifier with exponential backoff, cooldown, and wake/network
gating.

Each supervisor tick the Monitor samples liveness, HTTP health, network
reachability, proxy reachability and system uptime, feeds them to the
pure classifier, and executes at most one restart.

# Failure Taxonomy

	Fatal                liveness false on two probes 5s apart -> restart now
	Transient-unhealthy  alive but HTTP unhealthy -> backoff ladder
	Network-down         offline -> never restart, mark was_down
	Network-recovered    offline->online edge -> settle, re-verify, restart once
	Wake                 uptime decreased or jumped 10+ ticks -> settle, restart once
	Proxy-degraded       N consecutive proxy failures -> restart

# Backoff Ladder

First transient failure arms the ladder at BACKOFF_INITIAL without
restarting. While the wait has not elapsed the tick defers; at each
escalation point the wait multiplies, and when the next rung would
exceed BACKOFF_MAX the ladder instead authorizes one restart and
resets. Any healthy observation resets the ladder to inactive. Within
an episode the wait is strictly non-decreasing and bounded by the
ceiling.

# Cooldown

Every authorized restart consults the global cooldown first. A
suppressed restart is logged and changes nothing: the ladder stays
armed, counters stay put. last_restart advances unconditionally after
every invocation, including failed ones; restart storms are exactly
what the cooldown exists to prevent.

# Purity

Classify and ConfirmSettle are total pure functions from (params,
state, signals, now) to (action, successor state). They never probe,
sleep, log or restart; that keeps them exercisable against synthetic
signal traces. The Monitor owns every side effect: the fatal
double-probe, settle delays, the service-manager restart and its
post-invocation health polling, and event publication.

# Usage

	m := health.NewMonitor(health.Options{
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

	m.Tick(ctx)                                   // one supervision pass
	m.RequestRestart(ctx, types.RestartReasonConfigRollback)

RequestRestart is the cooldown-gated entry point other modules use: the
heartbeat prober when agents are stale over a dead gateway, and the
config safeguard when a rollback fires.

# Integration Points

  - pkg/probe: signal sampling and the restart primitive
  - pkg/events: restart, network and wake events
  - pkg/supervisor: calls Tick first in every cycle so wake/network
    gating precedes config decisions
*/
package health
