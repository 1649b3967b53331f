package health

import (
	"fmt"
	"time"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

// Params are the tuning knobs the classifier consumes. They are fixed
// for the lifetime of a run.
type Params struct {
	TickInterval      time.Duration
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffMultiplier float64
	Cooldown          time.Duration

	ProxyConfigured    bool
	ProxyFailThreshold int
}

// BackoffState is the per-failure-class retry ladder. Wait of zero
// means the ladder is inactive.
type BackoffState struct {
	Wait      time.Duration
	FailStart time.Time
}

// Active reports whether a failure episode is in progress
func (b BackoffState) Active() bool {
	return b.Wait > 0
}

// CooldownState is the global anti-thrash guard
type CooldownState struct {
	LastRestart time.Time
}

// Allow reports whether a restart is permitted at now
func (c CooldownState) Allow(now time.Time, cooldown time.Duration) bool {
	return c.LastRestart.IsZero() || now.Sub(c.LastRestart) >= cooldown
}

// WakeState detects system sleep or reboot through uptime anomalies
type WakeState struct {
	LastUptime float64
	Seen       bool
}

// NetworkState tracks edge-triggered connectivity
type NetworkState struct {
	WasDown bool
}

// State is everything the classifier carries between ticks. It is a
// plain value: Classify returns the successor state and never mutates
// its input.
type State struct {
	Backoff    BackoffState
	Cooldown   CooldownState
	Wake       WakeState
	Network    NetworkState
	ProxyFails int
}

// NoteRestart records an issued restart. Called unconditionally after
// the control primitive is invoked, success or not; cooldown
// intentionally covers failed restarts to prevent storms.
func (s State) NoteRestart(now time.Time) State {
	s.Cooldown.LastRestart = now
	return s
}

// Classify is the decision core: a total pure function from (state,
// signals) to (action, successor state). Side effects (restarting,
// logging, settling) live in the Monitor. Tick order: wake check,
// network transition check, network-down exit, fatal/transient
// classification, proxy check.
func Classify(p Params, st State, sig types.Signals, now time.Time) (types.Action, State) {
	// 1. Wake check. An uptime decrease means reboot; a jump past ten
	// tick periods means the host slept under us. Either way signals
	// are untrustworthy until after a settle.
	wakeJump := p.TickInterval.Seconds() * 10
	woke := st.Wake.Seen &&
		(sig.UptimeSeconds < st.Wake.LastUptime ||
			sig.UptimeSeconds > st.Wake.LastUptime+wakeJump)
	st.Wake.LastUptime = sig.UptimeSeconds
	st.Wake.Seen = true
	if woke {
		return types.Action{
			Kind:   types.ActionSettleRecheck,
			Reason: types.RestartReasonWake,
			Detail: "uptime anomaly",
		}, st
	}

	// 2./3. Network transitions. A down network never restarts; a
	// recovery is re-verified after the settle interval.
	if !sig.Online {
		first := !st.Network.WasDown
		st.Network.WasDown = true
		detail := "network still down"
		if first {
			detail = "network down"
		}
		return types.Action{Kind: types.ActionDefer, Detail: detail}, st
	}
	if st.Network.WasDown {
		st.Network.WasDown = false
		return types.Action{
			Kind:   types.ActionSettleRecheck,
			Reason: types.RestartReasonNetworkRecovered,
			Detail: "network recovered",
		}, st
	}

	// 4. Fatal and transient health. Liveness arrives here already
	// double-probed by the Monitor, so false means confirmed dead.
	if !sig.Liveness {
		if !st.Cooldown.Allow(now, p.Cooldown) {
			return types.Action{Kind: types.ActionDefer, Detail: "cooldown suppressed fatal restart"}, st
		}
		return types.Action{Kind: types.ActionRestart, Reason: types.RestartReasonFatal}, st
	}

	if !sig.HTTPHealthy {
		return classifyTransient(p, st, now)
	}

	// Healthy observation resets the ladder
	st.Backoff = BackoffState{}

	// 5. Proxy check, on its own cadence
	if p.ProxyConfigured && sig.ProxyChecked {
		return classifyProxy(p, st, sig, now)
	}

	return types.Action{Kind: types.ActionNone}, st
}

// classifyTransient advances the backoff ladder for the alive-but-
// unhealthy class
func classifyTransient(p Params, st State, now time.Time) (types.Action, State) {
	if !st.Backoff.Active() {
		st.Backoff = BackoffState{Wait: p.BackoffInitial, FailStart: now}
		return types.Action{
			Kind:   types.ActionDefer,
			Detail: fmt.Sprintf("backoff armed, wait %s", st.Backoff.Wait),
		}, st
	}

	if now.Sub(st.Backoff.FailStart) < st.Backoff.Wait {
		return types.Action{
			Kind:   types.ActionDefer,
			Detail: fmt.Sprintf("backoff waiting, %s of %s elapsed", now.Sub(st.Backoff.FailStart).Round(time.Second), st.Backoff.Wait),
		}, st
	}

	// Escalation point. When the next rung would exceed the ceiling the
	// ladder has run out and a restart is authorized instead.
	next := time.Duration(float64(st.Backoff.Wait) * p.BackoffMultiplier)
	if next > p.BackoffMax {
		if !st.Cooldown.Allow(now, p.Cooldown) {
			// Suppressed restarts leave the ladder armed and unchanged
			return types.Action{Kind: types.ActionDefer, Detail: "cooldown suppressed backoff restart"}, st
		}
		st.Backoff = BackoffState{}
		return types.Action{Kind: types.ActionRestart, Reason: types.RestartReasonBackoffExhausted}, st
	}

	st.Backoff.Wait = next
	st.Backoff.FailStart = now
	return types.Action{
		Kind:   types.ActionDefer,
		Detail: fmt.Sprintf("backoff escalated to %s", next),
	}, st
}

// classifyProxy counts consecutive degraded proxy checks
func classifyProxy(p Params, st State, sig types.Signals, now time.Time) (types.Action, State) {
	if sig.ProxyOK {
		st.ProxyFails = 0
		return types.Action{Kind: types.ActionNone}, st
	}

	st.ProxyFails++
	if st.ProxyFails < p.ProxyFailThreshold {
		return types.Action{
			Kind:   types.ActionDefer,
			Detail: fmt.Sprintf("proxy degraded, %d of %d", st.ProxyFails, p.ProxyFailThreshold),
		}, st
	}

	if !st.Cooldown.Allow(now, p.Cooldown) {
		return types.Action{Kind: types.ActionDefer, Detail: "cooldown suppressed proxy restart"}, st
	}
	st.ProxyFails = 0
	return types.Action{Kind: types.ActionRestart, Reason: types.RestartReasonProxyDegraded}, st
}

// ConfirmSettle decides the second half of a settle-recheck: signals
// re-sampled after the settle interval either confirm the one-shot
// restart or defer it. Pure, like Classify.
func ConfirmSettle(p Params, st State, reason types.RestartReason, sig types.Signals, now time.Time) (types.Action, State) {
	var ok bool
	switch reason {
	case types.RestartReasonWake:
		ok = sig.Online
	case types.RestartReasonNetworkRecovered:
		ok = sig.Online && sig.ExternalReachable
	default:
		return types.Action{Kind: types.ActionDefer, Detail: "unknown settle reason"}, st
	}

	if !ok {
		return types.Action{Kind: types.ActionDefer, Detail: "post-settle verification failed"}, st
	}
	if !st.Cooldown.Allow(now, p.Cooldown) {
		return types.Action{Kind: types.ActionDefer, Detail: "cooldown suppressed settle restart"}, st
	}
	return types.Action{Kind: types.ActionRestart, Reason: reason}, st
}
