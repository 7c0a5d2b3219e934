// Package auth はブラウザコンテキストごとの認証状態の管理と、
// バックエンドと連携したアカウント操作を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/session"
)

// State は認証状態。
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Manager は1つのブラウザコンテキストの認証セッションを保持する。
// リクエストごとに生成され、リクエストコンテキスト経由で各ハンドラーに渡される。
// Manager自身はネットワーク呼び出しを行わない。
type Manager struct {
	store  *session.Store
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	state    State
	session  *model.Session
	token    string
	verified bool
	gen      uint64 // LoginとLogoutのたびに増える
}

// NewManager はManagerを生成する。生成直後の状態はuninitialized。
func NewManager(store *session.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		state:  StateUninitialized,
	}
}

// Init は保存済みのセッションを読み込む。
// セッションがあればauthenticated（未検証）、なければanonymousになる。
// 期限切れのJWTが保存されていた場合はストアを消去してanonymousになる。
// 読み込み中にLoginまたはLogoutが行われた場合、読み込んだ結果は捨てる。
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	m.state = StateLoading
	gen := m.gen
	m.mu.Unlock()

	sess, token, ok := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoading {
		return
	}
	if ok && credentialExpired(token, m.now()) {
		ok = false
		if m.gen == gen {
			m.logger.Info("保存済みの認証情報が期限切れのため破棄します",
				slog.String("email", sess.Email),
			)
			m.store.Clear(ctx)
		}
	}

	if !ok {
		m.reset()
		return
	}
	m.state = StateAuthenticated
	m.session = sess
	m.token = token
	m.verified = false
}

// Login はバックエンドが認証したセッションで状態を丸ごと置き換え、保存する。
// 保存に失敗した場合は状態を変更せずにエラーを返す。
func (m *Manager) Login(ctx context.Context, sess *model.Session, token string) error {
	m.bump()
	if err := m.store.Save(ctx, sess, token); err != nil {
		return fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateAuthenticated
	m.session = sess
	m.token = token
	m.verified = true
	return nil
}

// Refresh はプロフィール再取得の結果でセッションを置き換える。
// トークンは現在のものを引き継ぎ、未検証フラグを解除する。
func (m *Manager) Refresh(ctx context.Context, sess *model.Session) error {
	m.mu.RLock()
	token := m.token
	authenticated := m.state == StateAuthenticated
	m.mu.RUnlock()

	if !authenticated {
		return model.NewUnauthenticatedError()
	}
	return m.Login(ctx, sess, token)
}

// Logout はセッションを破棄してanonymousにする。何度呼んでも同じ結果になる。
func (m *Manager) Logout(ctx context.Context) {
	m.bump()
	m.store.Clear(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// bump はストアへの書き込みが始まったことを記録する。
func (m *Manager) bump() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
}

func (m *Manager) reset() {
	m.state = StateAnonymous
	m.session = nil
	m.token = ""
	m.verified = false
}

// Session は現在のセッションのコピーを返す。未認証の場合はnil。
func (m *Manager) Session() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Token はベアラートークンを返す。
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// State は現在の認証状態を返す。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated は認証済みかどうかを返す。
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// IsLoading は認証状態が未確定（uninitializedまたはloading）かどうかを返す。
func (m *Manager) IsLoading() bool {
	s := m.State()
	return s == StateUninitialized || s == StateLoading
}

// Verified はセッションがこのリクエスト中にバックエンドで確認されたかどうかを返す。
// 保存済みのセッションを読み込んだだけの場合はfalse。
func (m *Manager) Verified() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verified
}

// Role は現在のロールを返す。未認証の場合は空文字列。
func (m *Manager) Role() model.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Role
}
