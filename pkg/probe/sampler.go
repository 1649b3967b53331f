package probe

import (
	"context"
	"net/url"
	"time"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

// Per-call timeout ceilings. Probes are cheap by contract; anything
// slower is reported as unhealthy.
const (
	HTTPTimeout  = 5 * time.Second
	ProxyTimeout = 8 * time.Second
	DialTimeout  = 3 * time.Second
)

// Endpoints holds the probe targets for one supervised gateway
type Endpoints struct {
	// HealthURL is the gateway's HTTP health endpoint
	HealthURL string

	// PingTarget is the ICMP connectivity target
	PingTarget  string
	PingTimeout time.Duration

	// ExternalURL is the stricter post-settle reachability check
	ExternalURL string

	// ProxyURL is the optional egress proxy; empty means none
	ProxyURL string

	// ProxyProbeURL is the external API probed through the proxy
	ProxyProbeURL string

	// ProcessPattern identifies the gateway in the process table
	ProcessPattern string

	// ServiceLabel is the service-manager label used for restarts
	ServiceLabel string
}

// Sampler turns raw probes into the classifier's signal sample
type Sampler struct {
	Prober    Prober
	Endpoints Endpoints
}

// NewSampler creates a Sampler over the given prober
func NewSampler(p Prober, e Endpoints) *Sampler {
	return &Sampler{Prober: p, Endpoints: e}
}

// AcceptableHealthStatus reports whether an HTTP status code counts as
// healthy. 401 and 403 prove the HTTP stack is alive even when auth is
// gated.
func AcceptableHealthStatus(code int) bool {
	switch code {
	case 200, 204, 401, 403:
		return true
	}
	return false
}

// Liveness reports whether the gateway process is visible
func (s *Sampler) Liveness() bool {
	return s.Prober.ProcessAlive(s.Endpoints.ProcessPattern)
}

// HTTPHealthy probes the gateway health endpoint
func (s *Sampler) HTTPHealthy(ctx context.Context) bool {
	code, err := s.Prober.HTTPStatus(ctx, s.Endpoints.HealthURL, HTTPTimeout)
	if err != nil {
		return false
	}
	return AcceptableHealthStatus(code)
}

// Online sends one ICMP echo to the ping target. The configured ping
// timeout is capped at DialTimeout.
func (s *Sampler) Online(ctx context.Context) bool {
	timeout := s.Endpoints.PingTimeout
	if timeout <= 0 || timeout > DialTimeout {
		timeout = DialTimeout
	}
	return s.Prober.Ping(ctx, s.Endpoints.PingTarget, timeout)
}

// ExternalReachable probes the well-known external API over HTTPS
func (s *Sampler) ExternalReachable(ctx context.Context) bool {
	code, err := s.Prober.HTTPStatus(ctx, s.Endpoints.ExternalURL, HTTPTimeout)
	if err != nil {
		return false
	}
	return code == 200
}

// ProxyOK verifies the configured proxy end to end: the proxy socket
// accepts connections and the external API answers through it with any
// valid status. No configured proxy counts as healthy.
func (s *Sampler) ProxyOK(ctx context.Context) bool {
	if s.Endpoints.ProxyURL == "" {
		return true
	}
	u, err := url.Parse(s.Endpoints.ProxyURL)
	if err != nil || u.Host == "" {
		return false
	}
	if !s.Prober.TCPDial(u.Host, DialTimeout) {
		return false
	}
	code, err := s.Prober.HTTPStatusVia(ctx, s.Endpoints.ProxyURL, s.Endpoints.ProxyProbeURL, ProxyTimeout)
	if err != nil {
		return false
	}
	return code > 0
}

// Uptime returns system uptime in seconds, 0 when unreadable
func (s *Sampler) Uptime() float64 {
	up, err := s.Prober.UptimeSeconds()
	if err != nil {
		return 0
	}
	return up
}

// Sample takes one consistent reading of every signal. Signals are
// re-read by each module that needs them; callers never share a stale
// sample across modules.
func (s *Sampler) Sample(ctx context.Context) types.Signals {
	return types.Signals{
		Liveness:          s.Liveness(),
		HTTPHealthy:       s.HTTPHealthy(ctx),
		Online:            s.Online(ctx),
		ExternalReachable: s.ExternalReachable(ctx),
		ProxyOK:           s.ProxyOK(ctx),
		UptimeSeconds:     s.Uptime(),
		SampledAt:         time.Now(),
	}
}

// GatewayHealthy re-samples just the two signals the safeguard's armed
// state machine consumes
func (s *Sampler) GatewayHealthy(ctx context.Context) bool {
	return s.Liveness() && s.HTTPHealthy(ctx)
}
