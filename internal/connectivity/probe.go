// Package connectivity はバックエンドへの到達可否の確認と、
// ブラウザコンテキストごとの接続状態の管理を提供する。
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/model"
)

// ProbePath は到達確認に使用するバックエンドのパス。
const ProbePath = "/api/auth/login"

// DefaultProbeTimeout は到達確認のデフォルトのタイムアウト。
const DefaultProbeTimeout = 3 * time.Second

// Probe はバックエンドへの到達可否を確認する。
// HTTPステータスに関わらず応答があればonline、通信自体が失敗すればofflineとみなす。
type Probe struct {
	backendURL string
	client     *http.Client
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewProbe はProbeを生成する。
func NewProbe(backendURL string, timeout time.Duration, mc metrics.MetricsCollector, logger *slog.Logger) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		backendURL: backendURL,
		client: &http.Client{
			Timeout: timeout,
			// リダイレクト先への追従は不要。最初の応答で到達は確認できる。
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		metrics: mc,
		logger:  logger,
	}
}

// Check はHEAD {backend}/api/auth/login を送信して到達可否を返す。
// エラーは返さず、通信失敗はすべてofflineとして扱う。
func (p *Probe) Check(ctx context.Context) model.ConnectivityStatus {
	status := p.check(ctx)
	p.metrics.RecordProbe(string(status))
	return status
}

func (p *Probe) check(ctx context.Context) model.ConnectivityStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.backendURL+ProbePath, nil)
	if err != nil {
		p.logger.Warn("接続確認リクエストの生成に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.ConnectivityOffline
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Info("バックエンドに到達できません",
			slog.String("backend_url", p.backendURL),
			slog.String("error", err.Error()),
		)
		return model.ConnectivityOffline
	}
	resp.Body.Close()

	p.logger.Debug("バックエンドに到達しました",
		slog.Int("status_code", resp.StatusCode),
	)
	return model.ConnectivityOnline
}
