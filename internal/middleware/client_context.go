// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/session"
	"github.com/hitoshi/portal/internal/storage"
)

// ClientCookieName はブラウザコンテキストを識別するCookie名。
const ClientCookieName = "client_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	clientIDContextKey = contextKey("client_id")
	managerContextKey  = contextKey("auth_manager")
)

// ClientContextConfig はブラウザコンテキストミドルウェアの設定。
type ClientContextConfig struct {
	MaxAge         int           // Cookieの有効期間（秒）
	Secure         bool          // Secure属性を付与するか
	Domain         string        // Cookieのドメイン
	HydrateTimeout time.Duration // セッション読み込みを待つ最大時間
}

// NewClientContextMiddleware はclient_id Cookieからブラウザコンテキストを特定し、
// 保存済みセッションを読み込んだ認証マネージャーをリクエストコンテキストに注入する。
// Cookieがない、または不正な場合は新しいIDを発行する。
// 読み込みがHydrateTimeout内に終わらない場合、マネージャーは読み込み中のまま渡される。
func NewClientContextMiddleware(medium storage.Medium, cfg ClientContextConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	if cfg.HydrateTimeout <= 0 {
		cfg.HydrateTimeout = 2 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIDFromCookie(r)
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookieName,
					Value:    clientID,
					Path:     "/",
					Domain:   cfg.Domain,
					MaxAge:   cfg.MaxAge,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			store := session.NewStore(medium, clientID, logger)
			mgr := auth.NewManager(store, logger)

			done := make(chan struct{})
			go func() {
				defer close(done)
				mgr.Init(r.Context())
			}()

			timer := time.NewTimer(cfg.HydrateTimeout)
			select {
			case <-done:
				timer.Stop()
			case <-timer.C:
				logger.Warn("セッションの読み込みが時間内に完了しませんでした",
					slog.String("client_id", clientID),
					slog.Duration("timeout", cfg.HydrateTimeout),
				)
			}

			ctx := context.WithValue(r.Context(), clientIDContextKey, clientID)
			ctx = context.WithValue(ctx, managerContextKey, mgr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIDFromCookie はCookieからクライアントIDを取得する。UUIDでない値は無視する。
func clientIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ClientCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// ClientIDFromContext はリクエストコンテキストからクライアントIDを取得する。
// ブラウザコンテキストミドルウェアを通過したリクエストでのみ有効。
func ClientIDFromContext(ctx context.Context) (string, error) {
	clientID, ok := ctx.Value(clientIDContextKey).(string)
	if !ok || clientID == "" {
		return "", fmt.Errorf("client ID not found in context")
	}
	return clientID, nil
}

// ManagerFromContext はリクエストコンテキストから認証マネージャーを取得する。
func ManagerFromContext(ctx context.Context) *auth.Manager {
	mgr, _ := ctx.Value(managerContextKey).(*auth.Manager)
	return mgr
}

// ContextWithClient はコンテキストにクライアントIDと認証マネージャーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClient(ctx context.Context, clientID string, mgr *auth.Manager) context.Context {
	ctx = context.WithValue(ctx, clientIDContextKey, clientID)
	return context.WithValue(ctx, managerContextKey, mgr)
}
