package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/model"
)

func newTestAuthHandler(t *testing.T, svc *mockAccountService, conn *mockConnectivity) *AuthHandler {
	t.Helper()
	return NewAuthHandler(svc, conn, testViews(t))
}

// --- GET /auth/login ---

func TestAuthHandler_LoginPage_ProbesWhenUnknown(t *testing.T) {
	conn := &mockConnectivity{}
	h := newTestAuthHandler(t, &mockAccountService{}, conn)

	w := httptest.NewRecorder()
	h.LoginPage(w, newRequest(http.MethodGet, "/auth/login", nil, newTestManager(t)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if conn.checkCalls != 1 {
		t.Errorf("checkCalls = %d, want 1", conn.checkCalls)
	}
	if !strings.Contains(w.Body.String(), "サーバーに接続できます。") {
		t.Errorf("expected online indicator in body:\n%s", w.Body.String())
	}
}

func TestAuthHandler_LoginPage_UsesKnownStatus(t *testing.T) {
	conn := &mockConnectivity{status: model.ConnectivityOffline}
	h := newTestAuthHandler(t, &mockAccountService{}, conn)

	w := httptest.NewRecorder()
	h.LoginPage(w, newRequest(http.MethodGet, "/auth/login", nil, newTestManager(t)))

	if conn.checkCalls != 0 {
		t.Errorf("checkCalls = %d, want 0", conn.checkCalls)
	}
	body := w.Body.String()
	if !strings.Contains(body, "サーバーに接続できません。") {
		t.Error("expected offline indicator")
	}
	if !strings.Contains(body, `action="/auth/login/retry"`) {
		t.Error("offline login page should offer a retry")
	}
	if !strings.Contains(body, "disabled") {
		t.Error("submit should be disabled while offline")
	}
}

func TestAuthHandler_LoginPage_AuthenticatedRedirectsToLanding(t *testing.T) {
	h := newTestAuthHandler(t, &mockAccountService{}, &mockConnectivity{})

	w := httptest.NewRecorder()
	h.LoginPage(w, newRequest(http.MethodGet, "/auth/login", nil, loggedInManager(t, model.RoleAdmin)))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard/admin" {
		t.Errorf("Location = %q, want %q", loc, "/dashboard/admin")
	}
}

func TestAuthHandler_LoginPage_RegisteredNotice(t *testing.T) {
	h := newTestAuthHandler(t, &mockAccountService{}, &mockConnectivity{status: model.ConnectivityOnline})

	w := httptest.NewRecorder()
	h.LoginPage(w, newRequest(http.MethodGet, "/auth/login?registered=1", nil, newTestManager(t)))

	if !strings.Contains(w.Body.String(), "登録が完了しました。") {
		t.Error("expected registration notice")
	}
}

func TestAuthHandler_LoginPage_NoClientContext(t *testing.T) {
	h := newTestAuthHandler(t, &mockAccountService{}, &mockConnectivity{})

	w := httptest.NewRecorder()
	h.LoginPage(w, newRequest(http.MethodGet, "/auth/login", nil, nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- POST /auth/login ---

func TestAuthHandler_Login_RedirectsByRole(t *testing.T) {
	tests := []struct {
		role model.Role
		want string
	}{
		{model.RoleAdmin, "/dashboard/admin"},
		{model.RoleStudent, "/dashboard/student"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			svc := &mockAccountService{
				loginFn: func(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error) {
					if clientID != testClientID {
						t.Errorf("clientID = %q, want %q", clientID, testClientID)
					}
					if form.Email != "taro@example.com" || form.Password != "secret" {
						t.Errorf("form = %+v", form)
					}
					return &model.Session{Email: form.Email, Role: tt.role}, nil
				},
			}
			h := newTestAuthHandler(t, svc, &mockConnectivity{status: model.ConnectivityOnline})

			form := url.Values{"email": {" taro@example.com "}, "password": {"secret"}}
			w := httptest.NewRecorder()
			h.Login(w, newRequest(http.MethodPost, "/auth/login", form, newTestManager(t)))

			if w.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
			}
			if loc := w.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
		})
	}
}

func TestAuthHandler_Login_HonorsNext(t *testing.T) {
	svc := &mockAccountService{
		loginFn: func(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error) {
			return &model.Session{Email: form.Email, Role: model.RoleStudent}, nil
		},
	}
	h := newTestAuthHandler(t, svc, &mockConnectivity{status: model.ConnectivityOnline})

	tests := []struct {
		name string
		next string
		want string
	}{
		{"site path", "/profile?tab=password", "/profile?tab=password"},
		{"absolute url", "https://evil.example.com/", "/dashboard/student"},
		{"protocol relative", "//evil.example.com/", "/dashboard/student"},
		{"login loop", "/auth/login", "/dashboard/student"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"email": {"a@example.com"}, "password": {"x"}, "next": {tt.next}}
			w := httptest.NewRecorder()
			h.Login(w, newRequest(http.MethodPost, "/auth/login", form, newTestManager(t)))

			if loc := w.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
		})
	}
}

func TestAuthHandler_Login_FailureRendersError(t *testing.T) {
	svc := &mockAccountService{
		loginFn: func(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := newTestAuthHandler(t, svc, &mockConnectivity{status: model.ConnectivityOnline})

	form := url.Values{"email": {"taro@example.com"}, "password": {"wrong-password"}}
	w := httptest.NewRecorder()
	h.Login(w, newRequest(http.MethodPost, "/auth/login", form, newTestManager(t)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := w.Body.String()
	if !strings.Contains(body, "メールアドレスまたはパスワードが正しくありません。") {
		t.Error("expected error message in body")
	}
	if !strings.Contains(body, `value="taro@example.com"`) {
		t.Error("email should be kept in the form")
	}
	if strings.Contains(body, "wrong-password") {
		t.Error("password must not be echoed back")
	}
}

func TestAuthHandler_Login_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"offline", model.NewBackendOfflineError(), http.StatusServiceUnavailable},
		{"timeout", model.NewLoginTimeoutError(), http.StatusGatewayTimeout},
		{"validation", model.NewValidationError("メールアドレスを入力してください。"), http.StatusBadRequest},
		{"server", model.NewServerFailureError(500), http.StatusBadGateway},
		{"canceled", context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAccountService{
				loginFn: func(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error) {
					return nil, tt.err
				},
			}
			h := newTestAuthHandler(t, svc, &mockConnectivity{status: model.ConnectivityOnline})

			form := url.Values{"email": {"a@example.com"}, "password": {"x"}}
			w := httptest.NewRecorder()
			h.Login(w, newRequest(http.MethodPost, "/auth/login", form, newTestManager(t)))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// --- POST /auth/login/retry ---

func TestAuthHandler_RetryConnectivity(t *testing.T) {
	conn := &mockConnectivity{
		status: model.ConnectivityOffline,
		checkFn: func(ctx context.Context, clientID string) model.ConnectivityStatus {
			return model.ConnectivityOnline
		},
	}
	h := newTestAuthHandler(t, &mockAccountService{}, conn)

	form := url.Values{"next": {"/dashboard/admin"}}
	w := httptest.NewRecorder()
	h.RetryConnectivity(w, newRequest(http.MethodPost, "/auth/login/retry", form, newTestManager(t)))

	if conn.checkCalls != 1 {
		t.Errorf("checkCalls = %d, want 1", conn.checkCalls)
	}
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	want := "/auth/login?next=%2Fdashboard%2Fadmin"
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

// --- /auth/register ---

func TestAuthHandler_RegisterPage(t *testing.T) {
	h := newTestAuthHandler(t, &mockAccountService{}, &mockConnectivity{})

	w := httptest.NewRecorder()
	h.RegisterPage(w, newRequest(http.MethodGet, "/auth/register", nil, newTestManager(t)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `name="username"`) {
		t.Error("registration form fields should be rendered")
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	var got auth.RegisterForm
	svc := &mockAccountService{
		registerFn: func(ctx context.Context, clientID string, form auth.RegisterForm) error {
			got = form
			return nil
		},
	}
	h := newTestAuthHandler(t, svc, &mockConnectivity{})

	form := url.Values{
		"username":  {"taro"},
		"firstName": {"Taro"},
		"lastName":  {"Yamada"},
		"email":     {"taro@example.com"},
		"phone":     {"090-0000-0000"},
		"password":  {"secret"},
	}
	w := httptest.NewRecorder()
	h.Register(w, newRequest(http.MethodPost, "/auth/register", form, newTestManager(t)))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login?registered=1" {
		t.Errorf("Location = %q", loc)
	}
	if got.Username != "taro" || got.Phone != "090-0000-0000" || got.Password != "secret" {
		t.Errorf("form = %+v", got)
	}
}

func TestAuthHandler_Register_RejectedKeepsInput(t *testing.T) {
	svc := &mockAccountService{
		registerFn: func(ctx context.Context, clientID string, form auth.RegisterForm) error {
			return model.NewRequestRejectedError("Email already in use")
		},
	}
	h := newTestAuthHandler(t, svc, &mockConnectivity{})

	form := url.Values{"username": {"taro"}, "email": {"taro@example.com"}, "password": {"top-secret"}}
	w := httptest.NewRecorder()
	h.Register(w, newRequest(http.MethodPost, "/auth/register", form, newTestManager(t)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Email already in use") {
		t.Error("backend message should be shown")
	}
	if !strings.Contains(body, `value="taro"`) {
		t.Error("username should be kept in the form")
	}
	if strings.Contains(body, "top-secret") {
		t.Error("password must not be echoed back")
	}
}

// --- POST /auth/logout ---

func TestAuthHandler_Logout(t *testing.T) {
	h := newTestAuthHandler(t, &mockAccountService{}, &mockConnectivity{})
	mgr := loggedInManager(t, model.RoleStudent)

	w := httptest.NewRecorder()
	h.Logout(w, newRequest(http.MethodPost, "/auth/logout", url.Values{}, mgr))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want %q", loc, "/")
	}
	if mgr.IsAuthenticated() {
		t.Error("manager should be anonymous after logout")
	}
}
