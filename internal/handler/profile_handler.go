package handler

import (
	"net/http"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
)

// ProfileHandler はプロフィール画面のHTTPハンドラー。
// ルートガードの後段に置くこと。
type ProfileHandler struct {
	service AccountService
	views   *Views
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service AccountService, views *Views) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		views:   views,
	}
}

// Page はプロフィール画面を表示する。
// 保存済みのセッションを読み込んだだけの場合はバックエンドから再取得する。
// GET /profile
func (h *ProfileHandler) Page(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())

	var apiErr *model.APIError
	status := http.StatusOK
	if !mgr.Verified() {
		if _, err := h.service.RefreshProfile(r.Context(), mgr); err != nil {
			if !mgr.IsAuthenticated() {
				redirect(w, r, middleware.LoginPath)
				return
			}
			apiErr, status = viewError(err)
		}
	}

	h.renderProfile(w, status, mgr, apiErr, noticeFor(r.URL.Query().Get("done")))
}

// Refresh はバックエンドからプロフィールを再取得する。
// POST /profile/refresh
func (h *ProfileHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())

	if _, err := h.service.RefreshProfile(r.Context(), mgr); err != nil {
		h.fail(w, r, mgr, err)
		return
	}
	redirect(w, r, profilePath+"?done=refresh")
}

// Update はプロフィールを更新する。
// POST /profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := auth.ProfileForm{
		Username:  r.PostFormValue("username"),
		FirstName: r.PostFormValue("firstName"),
		LastName:  r.PostFormValue("lastName"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
	}

	if _, err := h.service.UpdateProfile(r.Context(), mgr, form); err != nil {
		if !mgr.IsAuthenticated() {
			redirect(w, r, middleware.LoginPath)
			return
		}
		apiErr, status := viewError(err)
		h.views.render(w, status, pageProfile, &pageData{
			Title:    "プロフィール",
			Session:  mgr.Session(),
			Verified: mgr.Verified(),
			Error:    apiErr,
			Form:     form,
		})
		return
	}
	redirect(w, r, profilePath+"?done=update")
}

// ChangePassword はパスワードを変更する。
// POST /profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := auth.PasswordForm{
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	if err := h.service.ChangePassword(r.Context(), mgr, form); err != nil {
		h.fail(w, r, mgr, err)
		return
	}
	redirect(w, r, profilePath+"?done=password")
}

// Delete はアカウントを削除してトップへ遷移する。
// POST /profile/delete
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())

	if err := h.service.DeleteAccount(r.Context(), mgr); err != nil {
		h.fail(w, r, mgr, err)
		return
	}
	redirect(w, r, homePath)
}

// fail は操作の失敗を表示する。資格情報を拒否されてログアウトした場合はログイン画面へ遷移する。
func (h *ProfileHandler) fail(w http.ResponseWriter, r *http.Request, mgr *auth.Manager, err error) {
	if !mgr.IsAuthenticated() {
		redirect(w, r, middleware.LoginPath)
		return
	}
	apiErr, status := viewError(err)
	h.renderProfile(w, status, mgr, apiErr, "")
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, status int, mgr *auth.Manager, apiErr *model.APIError, notice string) {
	sess := mgr.Session()
	var form auth.ProfileForm
	if sess != nil {
		form = auth.ProfileForm{
			Username:  sess.Username,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			Email:     sess.Email,
			Phone:     sess.Phone,
		}
	}
	h.views.render(w, status, pageProfile, &pageData{
		Title:    "プロフィール",
		Session:  sess,
		Verified: mgr.Verified(),
		Error:    apiErr,
		Notice:   notice,
		Form:     form,
	})
}

// noticeFor は完了した操作に対応するお知らせを返す。
func noticeFor(done string) string {
	switch done {
	case "refresh":
		return "プロフィールを再読み込みしました。"
	case "update":
		return "プロフィールを更新しました。"
	case "password":
		return "パスワードを変更しました。"
	default:
		return ""
	}
}
