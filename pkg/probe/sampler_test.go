package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAcceptableHealthStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, true},
		{204, true},
		{401, true},
		{403, true},
		{301, false},
		{404, false},
		{500, false},
		{503, false},
	}

	for _, tt := range tests {
		if got := AcceptableHealthStatus(tt.code); got != tt.want {
			t.Errorf("AcceptableHealthStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestHTTPHealthy_AuthGatedCountsAsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := NewSampler(NewSystem(), Endpoints{HealthURL: server.URL})
	if !s.HTTPHealthy(context.Background()) {
		t.Error("401 on the health endpoint should count as healthy")
	}
}

func TestHTTPHealthy_ServerErrorUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewSampler(NewSystem(), Endpoints{HealthURL: server.URL})
	if s.HTTPHealthy(context.Background()) {
		t.Error("500 on the health endpoint should count as unhealthy")
	}
}

func TestHTTPHealthy_Unreachable(t *testing.T) {
	// nothing listens here
	s := NewSampler(NewSystem(), Endpoints{HealthURL: "http://127.0.0.1:1/health"})
	if s.HTTPHealthy(context.Background()) {
		t.Error("connection refused should count as unhealthy")
	}
}

func TestProxyOK_NoProxyConfigured(t *testing.T) {
	s := NewSampler(NewSystem(), Endpoints{})
	if !s.ProxyOK(context.Background()) {
		t.Error("no configured proxy must count as healthy")
	}
}

func TestProxyOK_DeadSocket(t *testing.T) {
	s := NewSampler(NewSystem(), Endpoints{
		ProxyURL:      "http://127.0.0.1:1",
		ProxyProbeURL: "https://example.com/",
	})
	if s.ProxyOK(context.Background()) {
		t.Error("unreachable proxy socket must count as unhealthy")
	}
}

func TestProcessAlive_SelfVisible(t *testing.T) {
	sys := NewSystem()
	// the test binary itself is always in the process table
	if !sys.ProcessAlive("probe.test") && !sys.ProcessAlive("go") {
		t.Skip("test binary name not resolvable in this environment")
	}
}

func TestProcessAlive_NoMatch(t *testing.T) {
	sys := NewSystem()
	if sys.ProcessAlive("no-such-process-name-4d1f2a") {
		t.Error("expected no match for nonsense pattern")
	}
}

func TestTCPDial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	sys := NewSystem()
	addr := server.Listener.Addr().String()
	if !sys.TCPDial(addr, time.Second) {
		t.Errorf("expected dial to %s to succeed", addr)
	}
	if sys.TCPDial("127.0.0.1:1", 200*time.Millisecond) {
		t.Error("expected dial to closed port to fail")
	}
}

func TestUptimeSeconds(t *testing.T) {
	sys := NewSystem()
	up, err := sys.UptimeSeconds()
	if err != nil {
		t.Fatalf("UptimeSeconds: %v", err)
	}
	if up <= 0 {
		t.Errorf("expected positive uptime, got %f", up)
	}
}
