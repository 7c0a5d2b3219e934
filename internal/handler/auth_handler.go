// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
)

// AccountService はハンドラーが必要とするアカウント操作のインターフェース。
type AccountService interface {
	Login(ctx context.Context, mgr *auth.Manager, clientID string, form auth.LoginForm) (*model.Session, error)
	Register(ctx context.Context, clientID string, form auth.RegisterForm) error
	RefreshProfile(ctx context.Context, mgr *auth.Manager) (*model.Session, error)
	UpdateProfile(ctx context.Context, mgr *auth.Manager, form auth.ProfileForm) (*model.Session, error)
	ChangePassword(ctx context.Context, mgr *auth.Manager, form auth.PasswordForm) error
	DeleteAccount(ctx context.Context, mgr *auth.Manager) error
}

// ConnectivityChecker はブラウザコンテキストごとのバックエンド接続状態を扱うインターフェース。
type ConnectivityChecker interface {
	Status(clientID string) model.ConnectivityStatus
	Check(ctx context.Context, clientID string) model.ConnectivityStatus
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service      AccountService
	connectivity ConnectivityChecker
	views        *Views
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AccountService, conn ConnectivityChecker, views *Views) *AuthHandler {
	return &AuthHandler{
		service:      service,
		connectivity: conn,
		views:        views,
	}
}

// LoginPage はログイン画面を表示する。
// 接続状態が未確認の場合は表示前に疎通確認を行う。
// GET /auth/login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	clientID, mgr, ok := requestClient(w, r)
	if !ok {
		return
	}
	if mgr.IsAuthenticated() {
		redirect(w, r, landingPath(mgr.Role()))
		return
	}

	status := h.connectivity.Status(clientID)
	if status == model.ConnectivityChecking {
		status = h.connectivity.Check(r.Context(), clientID)
	}

	data := &pageData{
		Title:        "ログイン",
		Connectivity: status,
		Next:         safeNext(r.URL.Query().Get("next")),
		Form:         auth.LoginForm{},
	}
	if r.URL.Query().Get("registered") != "" {
		data.Notice = "登録が完了しました。ログインしてください。"
	}
	h.views.render(w, http.StatusOK, pageLogin, data)
}

// Login はログインフォームを処理する。
// 成功した場合はnextパラメータ、なければロールに応じたダッシュボードへ遷移する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	clientID, mgr, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := auth.LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))

	sess, err := h.service.Login(r.Context(), mgr, clientID, form)
	if err != nil {
		apiErr, status := viewError(err)
		h.views.render(w, status, pageLogin, &pageData{
			Title:        "ログイン",
			Connectivity: h.connectivity.Status(clientID),
			Error:        apiErr,
			Next:         next,
			Form:         auth.LoginForm{Email: form.Email},
		})
		return
	}

	if next == "" {
		next = landingPath(sess.Role)
	}
	redirect(w, r, next)
}

// RetryConnectivity は疎通確認をやり直してログイン画面に戻る。
// POST /auth/login/retry
func (h *AuthHandler) RetryConnectivity(w http.ResponseWriter, r *http.Request) {
	clientID, _, ok := requestClient(w, r)
	if !ok {
		return
	}
	h.connectivity.Check(r.Context(), clientID)

	target := middleware.LoginPath
	if next := safeNext(r.PostFormValue("next")); next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	redirect(w, r, target)
}

// RegisterPage は新規登録画面を表示する。
// GET /auth/register
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, http.StatusOK, pageRegister, &pageData{
		Title: "新規登録",
		Form:  auth.RegisterForm{},
	})
}

// Register は新規登録フォームを処理し、成功すればログイン画面へ遷移する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	clientID, _, ok := requestClient(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := auth.RegisterForm{
		Username:  r.PostFormValue("username"),
		FirstName: r.PostFormValue("firstName"),
		LastName:  r.PostFormValue("lastName"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		Password:  r.PostFormValue("password"),
	}

	if err := h.service.Register(r.Context(), clientID, form); err != nil {
		apiErr, status := viewError(err)
		form.Password = ""
		h.views.render(w, status, pageRegister, &pageData{
			Title: "新規登録",
			Error: apiErr,
			Form:  form,
		})
		return
	}

	redirect(w, r, middleware.LoginPath+"?registered=1")
}

// Logout はセッションを破棄してトップへ遷移する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if mgr := middleware.ManagerFromContext(r.Context()); mgr != nil {
		mgr.Logout(r.Context())
	}
	redirect(w, r, homePath)
}

// requestClient はリクエストコンテキストからクライアントIDと認証マネージャーを取り出す。
// ブラウザコンテキストがない場合は500を書き込んでfalseを返す。
func requestClient(w http.ResponseWriter, r *http.Request) (string, *auth.Manager, bool) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	mgr := middleware.ManagerFromContext(r.Context())
	if err != nil || mgr == nil {
		middleware.WriteInternalServerError(w)
		return "", nil, false
	}
	return clientID, mgr, true
}
