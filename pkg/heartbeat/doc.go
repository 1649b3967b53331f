/*
Package heartbeat detects agents that stopped making progress while
their gateway process stayed alive.

Each configured agent workspace carries a heartbeat file at
state/heartbeat.json with the timestamp of the agent's last activity.
The checker runs at most once per HEARTBEAT_CHECK_INTERVAL (token
bucket, not tick arithmetic) and classifies every agent: stale when the
heartbeat is older than HEARTBEAT_THRESHOLD_MIN minutes.

What happens on staleness depends entirely on gateway health:

  - gateway dead: request a restart (reason
    agents-stale-gateway-dead), subject to the normal cooldown
  - gateway alive but HTTP-unhealthy: log only; the health module's
    backoff ladder is already working the problem
  - gateway fully healthy: warn; this is the scheduler-dead signature
    and restarting a healthy gateway stays a manual call

This module never initiates a restart for a healthy gateway.

# Timestamps

ISO-8601-like, with or without a timezone offset; a missing offset is
read as UTC. Unparseable or missing heartbeat files classify the agent
as unreadable, not stale; a brand-new workspace must not trigger
restarts.

# Usage

	checker := heartbeat.New(heartbeat.Options{
		Agents:        cfg.AgentWorkspaces,
		ThresholdMin:  cfg.HeartbeatThresholdMin,
		CheckInterval: cfg.HeartbeatCheckInterval,
	}, sampler, monitor.RequestRestart, broker)

	reports := checker.Tick(ctx) // nil when rate-limited or unconfigured
*/
package heartbeat
