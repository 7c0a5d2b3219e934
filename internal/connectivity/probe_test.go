package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/portal/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockMetrics はMetricsCollectorのモック。
type mockMetrics struct {
	probes []string
}

func (m *mockMetrics) RecordLogin(string)                 {}
func (m *mockMetrics) RecordProbe(status string)          { m.probes = append(m.probes, status) }
func (m *mockMetrics) RecordGuardDecision(string)         {}
func (m *mockMetrics) RecordForcedLogout()                {}
func (m *mockMetrics) RecordBackendStatus(int)            {}
func (m *mockMetrics) RecordBackendLatency(time.Duration) {}

func TestProbe_Check_Online(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mm := &mockMetrics{}
	p := NewProbe(srv.URL, time.Second, mm, discardLogger())

	if got := p.Check(context.Background()); got != model.ConnectivityOnline {
		t.Errorf("expected online, got %q", got)
	}
	if gotMethod != http.MethodHead {
		t.Errorf("expected HEAD, got %s", gotMethod)
	}
	if gotPath != ProbePath {
		t.Errorf("expected path %s, got %s", ProbePath, gotPath)
	}
	if len(mm.probes) != 1 || mm.probes[0] != "online" {
		t.Errorf("expected probe metric, got %v", mm.probes)
	}
}

// どのHTTPステータスでも応答があればonlineとみなすことを検証
func TestProbe_Check_AnyStatusIsOnline(t *testing.T) {
	statuses := []int{
		http.StatusMethodNotAllowed,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusInternalServerError,
		http.StatusFound,
	}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(status)
			}))
			defer srv.Close()

			p := NewProbe(srv.URL, time.Second, nil, discardLogger())
			if got := p.Check(context.Background()); got != model.ConnectivityOnline {
				t.Errorf("expected online for %d, got %q", status, got)
			}
		})
	}
}

func TestProbe_Check_ClosedServerIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	mm := &mockMetrics{}
	p := NewProbe(url, time.Second, mm, discardLogger())

	if got := p.Check(context.Background()); got != model.ConnectivityOffline {
		t.Errorf("expected offline, got %q", got)
	}
	if len(mm.probes) != 1 || mm.probes[0] != "offline" {
		t.Errorf("expected offline probe metric, got %v", mm.probes)
	}
}

func TestProbe_Check_TimeoutIsOffline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := NewProbe(srv.URL, 50*time.Millisecond, nil, discardLogger())

	if got := p.Check(context.Background()); got != model.ConnectivityOffline {
		t.Errorf("expected offline on timeout, got %q", got)
	}
}

func TestProbe_Check_InvalidURLIsOffline(t *testing.T) {
	p := NewProbe("://bad", time.Second, nil, discardLogger())

	if got := p.Check(context.Background()); got != model.ConnectivityOffline {
		t.Errorf("expected offline, got %q", got)
	}
}

func TestNewProbe_DefaultTimeout(t *testing.T) {
	p := NewProbe("http://localhost", 0, nil, nil)
	if p.client.Timeout != DefaultProbeTimeout {
		t.Errorf("expected default timeout, got %v", p.client.Timeout)
	}
}
