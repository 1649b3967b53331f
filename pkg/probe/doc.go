/*
Package probe is the watchdog's platform abstraction surface.

Everything the supervisor knows about the outside world arrives through
the small Prober capability set: one ICMP echo, bounded HTTP GETs
(optionally through a proxy), a process-table scan, a user-scope
service restart, and monotonic system uptime. Keeping the surface this
small keeps every other package portable and testable against a fake.

# Capability Set

	Ping(ctx, target, timeout)            one ICMP echo via the system ping binary
	HTTPStatus(ctx, url, timeout)         GET, returns status code
	HTTPStatusVia(ctx, proxy, url, t)     GET through an egress proxy
	TCPDial(addr, timeout)                socket-level reachability
	ProcessAlive(pattern)                 process table scan (gopsutil)
	ServiceRestart(ctx, label)            systemctl --user / launchctl kickstart
	UptimeSeconds()                       monotonic uptime (gopsutil)

# Timeouts

Every call is bounded: ICMP probes at the configured ping timeout
(ceiling 3s), plain HTTP probes at 5s, proxy probes at 8s end to end.
A probe that exceeds its budget is reported as the unhealthy value.
The tick loop depends on this; a hanging probe would stall every
module behind it.

# Sampler

Sampler composes the capability set with the configured endpoints and
produces the classifier's Signals value. The health-status acceptance
set {200, 204, 401, 403} lives here: 401/403 prove the HTTP stack is
up even when auth is gated, so they count as healthy.

	sampler := probe.NewSampler(probe.NewSystem(), probe.Endpoints{
		HealthURL:      "http://127.0.0.1:18789/health",
		PingTarget:     "1.1.1.1",
		ExternalURL:    "https://discord.com/api/v10/gateway",
		ProcessPattern: "openclaw-gateway",
		ServiceLabel:   "openclaw-gateway",
	})
	sig := sampler.Sample(ctx)

# Restart Primitive

ServiceRestart delegates to the host's user-scope service manager:
systemd user units on Linux, launchd GUI-domain agents on macOS
(kickstart -k). Its exit code only reports whether the control
primitive was accepted; restart success is judged by post-invocation
health polling in pkg/health.

# Integration Points

  - pkg/health: per-signal probes, fatal double-probe, settle rechecks
  - pkg/safeguard: fresh GatewayHealthy samples for the armed machine
  - pkg/heartbeat: liveness + HTTP health context for stale agents
  - cmd/watchdog: direct probes for the status command
*/
package probe
