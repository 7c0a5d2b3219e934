package connectivity

import (
	"sync"
	"time"

	"github.com/hitoshi/portal/internal/model"
)

// MonitorConfig はMonitorの設定を保持する。
type MonitorConfig struct {
	IdleTTL         time.Duration // 最終アクセスからエントリを破棄するまでの時間
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultMonitorConfig はデフォルトの設定を返す。
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		IdleTTL:         30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Ticket は接続確認1回分の受付票。
// 発行後にログインが開始されていれば、その確認結果は反映されない。
type Ticket struct {
	ClientID   string
	generation uint64
}

// clientStatus はブラウザコンテキストごとの接続状態。
type clientStatus struct {
	status     model.ConnectivityStatus
	generation uint64
	lastAccess time.Time
}

// Monitor はブラウザコンテキストごとの接続状態（checking / online / offline）を管理する。
type Monitor struct {
	config MonitorConfig

	mu      sync.Mutex
	clients map[string]*clientStatus
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMonitor は新しいMonitorを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewMonitor(config MonitorConfig) *Monitor {
	m := &Monitor{
		config:  config,
		clients: make(map[string]*clientStatus),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Status は現在の接続状態を返す。未確認のブラウザコンテキストはcheckingを返す。
func (m *Monitor) Status(clientID string) model.ConnectivityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.clients[clientID]
	if !ok {
		return model.ConnectivityChecking
	}
	cs.lastAccess = m.now()
	return cs.status
}

// Begin は接続確認の開始を記録し、状態をcheckingにして受付票を返す。
func (m *Monitor) Begin(clientID string) Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.entry(clientID)
	cs.status = model.ConnectivityChecking
	return Ticket{ClientID: clientID, generation: cs.generation}
}

// Record は接続確認の結果を反映する。
// 受付票の発行後にログインが開始されていた場合は反映せずfalseを返す。
func (m *Monitor) Record(ticket Ticket, status model.ConnectivityStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.entry(ticket.ClientID)
	if cs.generation != ticket.generation {
		return false
	}
	cs.status = status
	return true
}

// BeginLogin はログインの開始を記録する。
// これ以前に発行された受付票による確認結果は以後無視される。
func (m *Monitor) BeginLogin(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry(clientID).generation++
}

// MarkOffline は通信失敗を検知した際に状態をofflineにする。
func (m *Monitor) MarkOffline(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry(clientID).status = model.ConnectivityOffline
}

// MarkOnline はバックエンドから応答があった際に状態をonlineにする。
func (m *Monitor) MarkOnline(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry(clientID).status = model.ConnectivityOnline
}

// entry はエントリを取得し、なければ生成する。呼び出し側でロックを保持すること。
func (m *Monitor) entry(clientID string) *clientStatus {
	cs, ok := m.clients[clientID]
	if !ok {
		cs = &clientStatus{status: model.ConnectivityChecking}
		m.clients[clientID] = cs
	}
	cs.lastAccess = m.now()
	return cs
}

// cleanupLoop は定期的に期限切れのエントリを削除する。
func (m *Monitor) cleanupLoop() {
	interval := m.config.CleanupInterval
	if interval <= 0 {
		interval = DefaultMonitorConfig().CleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCh:
			return
		}
	}
}

// cleanup はIdleTTLより長くアクセスのないエントリを削除する。
func (m *Monitor) cleanup() {
	threshold := m.now().Add(-m.config.IdleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, cs := range m.clients {
		if cs.lastAccess.Before(threshold) {
			delete(m.clients, id)
		}
	}
}

// Len は保持しているエントリ数を返す。
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
