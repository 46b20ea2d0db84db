package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mastershashi/llm-engineering-usecases/internal/health"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
	"github.com/mastershashi/llm-engineering-usecases/internal/metrics"
)

type staticChecker struct {
	result *health.Result
}

func (c staticChecker) Name() string                         { return "static" }
func (c staticChecker) Check(context.Context) *health.Result { return c.result }

func newTestServer(t *testing.T, checker health.Checker) *Server {
	t.Helper()
	h := health.NewManager("1.0.0")
	if checker != nil {
		h.AddChecker(checker)
	}
	reg, m := metrics.NewRegistry()
	m.RecordTrustScore(85)
	return New(h, Config{
		Address: "127.0.0.1:0",
		Metrics: metrics.HandlerFor(reg),
		Logger:  log.Discard(),
	})
}

func get(t *testing.T, s *Server, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	return res, string(body)
}

func TestNewDefaults(t *testing.T) {
	s := New(health.NewManager("dev"), Config{Address: ":0", Logger: log.Discard()})

	if s.shutdownTimeout != 5*time.Second {
		t.Errorf("default shutdown timeout: expected 5s, got %v", s.shutdownTimeout)
	}
	if s.httpServer.ReadTimeout != 10*time.Second {
		t.Errorf("default read timeout: expected 10s, got %v", s.httpServer.ReadTimeout)
	}

	res, _ := get(t, s, "/metrics")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler: expected 404, got %d", res.StatusCode)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		result     *health.Result
		wantCode   int
		wantStatus health.Status
	}{
		{"healthy", health.Healthy("ok"), http.StatusOK, health.StatusHealthy},
		{"degraded", health.Degraded("reconnecting"), http.StatusOK, health.StatusDegraded},
		{"unhealthy", health.Unhealthy("closed"), http.StatusServiceUnavailable, health.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, staticChecker{tt.result})

			for _, path := range []string{"/health/ready", "/healthz"} {
				res, body := get(t, s, path)
				if res.StatusCode != tt.wantCode {
					t.Errorf("%s: expected %d, got %d", path, tt.wantCode, res.StatusCode)
				}

				var probe health.ProbeResult
				if err := json.Unmarshal([]byte(body), &probe); err != nil {
					t.Fatalf("%s: decode: %v", path, err)
				}
				if probe.Status != tt.wantStatus {
					t.Errorf("%s: expected status %s, got %s", path, tt.wantStatus, probe.Status)
				}
			}
		})
	}
}

func TestLivenessDuringShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	s.health.MarkShutdown()

	res, body := get(t, s, "/health/live")
	if res.StatusCode != http.StatusOK {
		t.Errorf("liveness should stay 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, `"degraded"`) {
		t.Errorf("liveness during shutdown should be degraded: %s", body)
	}

	res, _ = get(t, s, "/health/ready")
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readiness during shutdown should be 503, got %d", res.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	res, body := get(t, s, "/metrics")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "amsab_trust_score 85") {
		t.Errorf("metrics output missing trust score:\n%s", body)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	res, err := http.Get("http://" + l.Addr().String() + "/health/live")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after graceful shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}
