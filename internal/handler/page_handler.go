package handler

import (
	"net/http"

	"github.com/hitoshi/portal/internal/middleware"
)

// PageHandler はトップ・ダッシュボード・権限エラーの画面を表示する。
// ダッシュボードはルートガードの後段に置くこと。
type PageHandler struct {
	views *Views
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(views *Views) *PageHandler {
	return &PageHandler{views: views}
}

// Home はトップ画面を表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "ホーム"}
	if mgr := middleware.ManagerFromContext(r.Context()); mgr != nil {
		data.Session = mgr.Session()
	}
	h.views.render(w, http.StatusOK, pageHome, data)
}

// Dashboard はロールに応じたダッシュボードへ遷移する。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())
	redirect(w, r, landingPath(mgr.Role()))
}

// AdminDashboard は管理者ダッシュボードを表示する。
// GET /dashboard/admin
func (h *PageHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())
	h.views.render(w, http.StatusOK, pageDashboardAdmin, &pageData{
		Title:   "管理者ダッシュボード",
		Session: mgr.Session(),
	})
}

// StudentDashboard は学生ダッシュボードを表示する。
// GET /dashboard/student
func (h *PageHandler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	mgr := middleware.ManagerFromContext(r.Context())
	h.views.render(w, http.StatusOK, pageDashboardStudent, &pageData{
		Title:   "ダッシュボード",
		Session: mgr.Session(),
	})
}

// Unauthorized はロールが許可されていない場合の画面を表示する。
// GET /unauthorized
func (h *PageHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "アクセス権がありません"}
	if mgr := middleware.ManagerFromContext(r.Context()); mgr != nil {
		data.Session = mgr.Session()
	}
	h.views.render(w, http.StatusForbidden, pageUnauthorized, data)
}
