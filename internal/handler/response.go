package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
)

// 画面のパス
const (
	homePath             = "/"
	dashboardPath        = "/dashboard"
	adminDashboardPath   = "/dashboard/admin"
	studentDashboardPath = "/dashboard/student"
	profilePath          = "/profile"
	registerPath         = "/auth/register"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// viewError は画面に表示するエラーとHTTPステータスを返す。
// APIError以外のエラーは詳細を隠して内部エラーとして扱う。
func viewError(err error) (*model.APIError, int) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, middleware.StatusForError(apiErr)
	}
	slog.Error("internal server error", slog.String("error", err.Error()))
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}, http.StatusInternalServerError
}

// landingPath はロールに応じたログイン後の遷移先を返す。
func landingPath(role model.Role) string {
	if role == model.RoleAdmin {
		return adminDashboardPath
	}
	return studentDashboardPath
}

// safeNext はログイン後の遷移先として使えるサイト内パスであればそれを返す。
// 外部URLやプロトコル相対URLは空文字列にする。
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if strings.HasPrefix(next, middleware.LoginPath) {
		return ""
	}
	return next
}

// redirect は303で遷移させる。POSTの後はGETで遷移先を読み込ませる。
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
