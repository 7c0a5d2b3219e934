package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスの指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLogin_CountsByResult はログイン結果がラベル別に集計されることを検証する。
func TestRecordLogin_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("success")
	c.RecordLogin("INVALID_CREDENTIALS")

	mf := findMetricFamily(t, reg, "portal_login_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	if counts["success"] != 2 {
		t.Errorf("success = %v, want 2", counts["success"])
	}
	if counts["INVALID_CREDENTIALS"] != 1 {
		t.Errorf("INVALID_CREDENTIALS = %v, want 1", counts["INVALID_CREDENTIALS"])
	}
}

func TestRecordProbe_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProbe("online")
	c.RecordProbe("offline")
	c.RecordProbe("offline")

	mf := findMetricFamily(t, reg, "portal_connectivity_probe_total")
	for _, m := range mf.GetMetric() {
		want := map[string]float64{"online": 1, "offline": 2}[labelValue(m, "status")]
		if m.GetCounter().GetValue() != want {
			t.Errorf("status %s = %v, want %v", labelValue(m, "status"), m.GetCounter().GetValue(), want)
		}
	}
}

func TestRecordGuardDecision_CountsByDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGuardDecision("render")

	mf := findMetricFamily(t, reg, "portal_route_guard_decision_total")
	if len(mf.GetMetric()) != 1 || labelValue(mf.GetMetric()[0], "decision") != "render" {
		t.Errorf("unexpected metrics: %v", mf.GetMetric())
	}
}

func TestRecordForcedLogout_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordForcedLogout()

	mf := findMetricFamily(t, reg, "portal_forced_logout_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("forced_logout_total = %v, want 1", v)
	}
}

// TestRecordBackendStatus_IncrementsCounterWithLabel はステータスコード別に集計されることを検証する。
func TestRecordBackendStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendStatus(200)
	c.RecordBackendStatus(401)
	c.RecordBackendStatus(200)

	mf := findMetricFamily(t, reg, "portal_backend_status_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "status_code")] = m.GetCounter().GetValue()
	}
	if counts["200"] != 2 || counts["401"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

// TestRecordBackendLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordBackendLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendLatency(150 * time.Millisecond)
	c.RecordBackendLatency(2 * time.Second)

	mf := findMetricFamily(t, reg, "portal_backend_latency_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() < 2.1 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample sum = %v, want ~2.15", h.GetSampleSum())
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はインターフェースを満たすことを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
	var _ MetricsCollector = Nop{}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリで独立して動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordForcedLogout()

	mf := findMetricFamily(t, reg2, "portal_forced_logout_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 0 {
		t.Errorf("reg2 forced_logout_total = %v, want 0", v)
	}
}
