package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/session"
	"github.com/hitoshi/portal/internal/storage"
)

// --- モック定義 ---

// mockAccountService はAccountServiceのモック実装。
type mockAccountService struct {
	loginFn          func(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error)
	registerFn       func(ctx context.Context, clientID string, form auth.RegisterForm) error
	refreshFn        func(ctx context.Context, mgr *auth.Manager) (*model.Session, error)
	updateFn         func(ctx context.Context, mgr *auth.Manager, form auth.ProfileForm) (*model.Session, error)
	changePasswordFn func(ctx context.Context, mgr *auth.Manager, form auth.PasswordForm) error
	deleteFn         func(ctx context.Context, mgr *auth.Manager) error
	refreshCalls     int
}

func (m *mockAccountService) Login(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, mgr, clientID, form)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAccountService) Register(ctx context.Context, clientID string, form auth.RegisterForm) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, clientID, form)
	}
	return nil
}

func (m *mockAccountService) RefreshProfile(ctx context.Context, mgr *auth.Manager) (*model.Session, error) {
	m.refreshCalls++
	if m.refreshFn != nil {
		return m.refreshFn(ctx, mgr)
	}
	return mgr.Session(), nil
}

func (m *mockAccountService) UpdateProfile(ctx context.Context, mgr *auth.Manager, form auth.ProfileForm) (*model.Session, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, mgr, form)
	}
	return mgr.Session(), nil
}

func (m *mockAccountService) ChangePassword(ctx context.Context, mgr *auth.Manager, form auth.PasswordForm) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, mgr, form)
	}
	return nil
}

func (m *mockAccountService) DeleteAccount(ctx context.Context, mgr *auth.Manager) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, mgr)
	}
	mgr.Logout(ctx)
	return nil
}

// mockConnectivity はConnectivityCheckerのモック実装。
type mockConnectivity struct {
	status     model.ConnectivityStatus
	checkFn    func(ctx context.Context, clientID string) model.ConnectivityStatus
	checkCalls int
}

func (m *mockConnectivity) Status(clientID string) model.ConnectivityStatus {
	if m.status == "" {
		return model.ConnectivityChecking
	}
	return m.status
}

func (m *mockConnectivity) Check(ctx context.Context, clientID string) model.ConnectivityStatus {
	m.checkCalls++
	if m.checkFn != nil {
		m.status = m.checkFn(ctx, clientID)
	} else {
		m.status = model.ConnectivityOnline
	}
	return m.status
}

// --- ヘルパー ---

const testClientID = "7d3f0c1e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager は初期化済みで未認証のManagerを生成する。
func newTestManager(t *testing.T) *auth.Manager {
	t.Helper()
	store := session.NewStore(storage.NewMemoryMedium(), testClientID, discardLogger())
	mgr := auth.NewManager(store, discardLogger())
	mgr.Init(context.Background())
	return mgr
}

// loggedInManager は指定ロールでログイン済みのManagerを生成する。
func loggedInManager(t *testing.T, role model.Role) *auth.Manager {
	t.Helper()
	mgr := newTestManager(t)
	sess := &model.Session{
		ID:        "42",
		Username:  "taro",
		FirstName: "Taro",
		LastName:  "Yamada",
		Email:     "taro@example.com",
		Role:      role,
	}
	if err := mgr.Login(context.Background(), sess, "tok-42"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return mgr
}

// rehydratedManager は保存済みセッションを読み込んだだけの（未検証の）Managerを生成する。
func rehydratedManager(t *testing.T, role model.Role) *auth.Manager {
	t.Helper()
	medium := storage.NewMemoryMedium()
	store := session.NewStore(medium, testClientID, discardLogger())
	if err := store.Save(context.Background(), &model.Session{ID: "42", Username: "taro", Email: "taro@example.com", Role: role}, "tok-42"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	mgr := auth.NewManager(store, discardLogger())
	mgr.Init(context.Background())
	return mgr
}

// newRequest はブラウザコンテキストを注入したリクエストを生成する。formがnilでなければPOSTフォームとして送る。
func newRequest(method, target string, form url.Values, mgr *auth.Manager) *http.Request {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if mgr != nil {
		req = req.WithContext(middleware.ContextWithClient(req.Context(), testClientID, mgr))
	}
	return req
}

func testViews(t *testing.T) *Views {
	t.Helper()
	v, err := NewViews()
	if err != nil {
		t.Fatalf("NewViews() error: %v", err)
	}
	return v
}
