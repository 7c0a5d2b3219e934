package middleware

import (
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/hitoshi/portal/internal/guard"
	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/model"
)

// 遷移先のパス
const (
	LoginPath        = "/auth/login"
	UnauthorizedPath = "/unauthorized"
)

// NewRouteGuardMiddleware は許可ロールに基づいてビューへのアクセスを制御するミドルウェアを返す。
// rolesが空の場合は認証済みであればどのロールでも許可する。
//
//   - 認証状態の読み込み中: 200とRefreshヘッダー付きの待機画面
//   - 未認証: 303で /auth/login へ
//   - ロール不一致: 303で /unauthorized へ
//   - それ以外: 保護対象のビュー
func NewRouteGuardMiddleware(mc metrics.MetricsCollector, roles ...model.Role) func(next http.Handler) http.Handler {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := guard.State{Loading: true}
			if mgr := ManagerFromContext(r.Context()); mgr != nil {
				state = guard.State{
					Loading:       mgr.IsLoading(),
					Authenticated: mgr.IsAuthenticated(),
					Role:          mgr.Role(),
				}
			}

			// 1リクエストが1回の画面遷移にあたるため、リダイレクトは毎回発生する
			decision := guard.Decide(state, roles)
			mc.RecordGuardDecision(string(decision))

			switch decision {
			case guard.Wait:
				w.Header().Set("Refresh", "1")
				writePlaceholder(w, http.StatusOK, "読み込み中…")
			case guard.RedirectLogin:
				target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				w.Header().Set("Location", target)
				writePlaceholder(w, http.StatusSeeOther, "ログイン画面へ移動しています…")
			case guard.RedirectUnauthorized:
				w.Header().Set("Location", UnauthorizedPath)
				writePlaceholder(w, http.StatusSeeOther, "権限を確認しています…")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// writePlaceholder は保護対象のビューの代わりに表示する簡易画面を書き込む。
func writePlaceholder(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8"><title>%[1]s</title></head><body><p class="placeholder">%[1]s</p></body></html>`,
		html.EscapeString(message))
}
