package handler

import (
	"context"

	"github.com/hitoshi/portal/internal/connectivity"
	"github.com/hitoshi/portal/internal/model"
)

// Prober はバックエンドへの疎通確認を行うインターフェース。
type Prober interface {
	Check(ctx context.Context) model.ConnectivityStatus
}

// ConnectivityAdapter は connectivity.Probe と connectivity.Monitor を
// ConnectivityChecker に適合させるアダプタ。
type ConnectivityAdapter struct {
	probe   Prober
	monitor *connectivity.Monitor
}

// NewConnectivityAdapter はConnectivityAdapterを生成する。
func NewConnectivityAdapter(probe Prober, monitor *connectivity.Monitor) *ConnectivityAdapter {
	return &ConnectivityAdapter{probe: probe, monitor: monitor}
}

// Status はブラウザコンテキストの現在の接続状態を返す。
func (a *ConnectivityAdapter) Status(clientID string) model.ConnectivityStatus {
	return a.monitor.Status(clientID)
}

// Check は疎通確認を行い、結果を反映した接続状態を返す。
// 確認中にログインが始まった場合、結果は破棄される。
func (a *ConnectivityAdapter) Check(ctx context.Context, clientID string) model.ConnectivityStatus {
	ticket := a.monitor.Begin(clientID)
	status := a.probe.Check(ctx)
	a.monitor.Record(ticket, status)
	return a.monitor.Status(clientID)
}
