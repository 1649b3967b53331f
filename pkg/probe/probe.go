package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"
)

// Prober is the small platform capability set everything else builds
// on. Implementations must honor the per-call timeouts; a probe that
// can hang is a probe that wedges the whole tick loop.
type Prober interface {
	// Ping sends one ICMP echo to target and reports success
	Ping(ctx context.Context, target string, timeout time.Duration) bool

	// HTTPStatus performs a GET and returns the status code
	HTTPStatus(ctx context.Context, rawURL string, timeout time.Duration) (int, error)

	// HTTPStatusVia performs a GET through the given proxy
	HTTPStatusVia(ctx context.Context, proxyURL, rawURL string, timeout time.Duration) (int, error)

	// TCPDial checks that something is listening at addr
	TCPDial(addr string, timeout time.Duration) bool

	// ProcessAlive reports whether a process matching pattern is
	// visible in the process table
	ProcessAlive(pattern string) bool

	// ServiceRestart asks the user-scope service manager to restart
	// the service with the given label
	ServiceRestart(ctx context.Context, label string) error

	// UptimeSeconds returns monotonic system uptime
	UptimeSeconds() (float64, error)
}

// System is the real Prober backed by the host OS
type System struct{}

// NewSystem returns a Prober backed by the host OS
func NewSystem() *System {
	return &System{}
}

// Ping shells out to the system ping binary with a single echo. The
// context deadline bounds the subprocess; exit status 0 means a reply
// arrived.
func (s *System) Ping(ctx context.Context, target string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", target)
	return cmd.Run() == nil
}

// HTTPStatus performs a GET with a dedicated client so the timeout is
// strictly per call.
func (s *System) HTTPStatus(ctx context.Context, rawURL string, timeout time.Duration) (int, error) {
	client := &http.Client{Timeout: timeout}
	return doGet(ctx, client, rawURL)
}

// HTTPStatusVia performs a GET through proxyURL
func (s *System) HTTPStatusVia(ctx context.Context, proxyURL, rawURL string, timeout time.Duration) (int, error) {
	proxy, err := url.Parse(proxyURL)
	if err != nil {
		return 0, fmt.Errorf("probe: parsing proxy url: %w", err)
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxy)},
	}
	return doGet(ctx, client, rawURL)
}

func doGet(ctx context.Context, client *http.Client, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("probe: building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe: request failed: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// TCPDial checks that addr accepts connections
func (s *System) TCPDial(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProcessAlive scans the process table for a name or command line
// containing pattern. Matching is case-sensitive literal substring
// matching; the pattern is not a regular expression.
func (s *System) ProcessAlive(pattern string) bool {
	procs, err := process.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		if name, err := p.Name(); err == nil && strings.Contains(name, pattern) {
			return true
		}
		if cmdline, err := p.Cmdline(); err == nil && cmdline != "" && strings.Contains(cmdline, pattern) {
			return true
		}
	}
	return false
}

// ServiceRestart invokes the platform service manager. Success here
// means the control primitive was accepted; whether the gateway came
// back is decided by post-restart health polling, not by this exit
// code.
func (s *System) ServiceRestart(ctx context.Context, label string) error {
	cmd := serviceRestartCmd(ctx, label)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("probe: service restart %s: %w (%s)", label, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// UptimeSeconds returns the host's monotonic uptime
func (s *System) UptimeSeconds() (float64, error) {
	up, err := host.Uptime()
	if err != nil {
		return 0, fmt.Errorf("probe: reading uptime: %w", err)
	}
	return float64(up), nil
}
