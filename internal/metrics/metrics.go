// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、接続確認、ルートガード、バックエンドクライアントから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordProbe(status string)
	RecordGuardDecision(decision string)
	RecordForcedLogout()
	RecordBackendStatus(statusCode int)
	RecordBackendLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         *prometheus.CounterVec
	probes         *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	forcedLogouts  prometheus.Counter
	backendStatus  *prometheus.CounterVec
	backendLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_login_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_connectivity_probe_total",
			Help: "バックエンド接続確認の結果別の合計数",
		}, []string{"status"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_route_guard_decision_total",
			Help: "ルートガードの判定別の合計数",
		}, []string{"decision"}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_forced_logout_total",
			Help: "バックエンドに資格情報を拒否されたことによる強制ログアウトの合計数",
		}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_status_total",
			Help: "バックエンドのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		backendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.probes,
		c.guardDecisions,
		c.forcedLogouts,
		c.backendStatus,
		c.backendLatency,
	)

	return c
}

// RecordLogin はログイン結果を記録する。resultは "success" またはエラーコード。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordProbe は接続確認の結果を記録する。
func (c *Collector) RecordProbe(status string) {
	c.probes.WithLabelValues(status).Inc()
}

// RecordGuardDecision はルートガードの判定を記録する。
func (c *Collector) RecordGuardDecision(decision string) {
	c.guardDecisions.WithLabelValues(decision).Inc()
}

// RecordForcedLogout は強制ログアウトを記録する。
func (c *Collector) RecordForcedLogout() {
	c.forcedLogouts.Inc()
}

// RecordBackendStatus はバックエンドのHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBackendLatency はバックエンド呼び出しのレイテンシを記録する。
func (c *Collector) RecordBackendLatency(duration time.Duration) {
	c.backendLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。テストやCLIサブコマンドで使用する。
type Nop struct{}

func (Nop) RecordLogin(string)                 {}
func (Nop) RecordProbe(string)                 {}
func (Nop) RecordGuardDecision(string)         {}
func (Nop) RecordForcedLogout()                {}
func (Nop) RecordBackendStatus(int)            {}
func (Nop) RecordBackendLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
