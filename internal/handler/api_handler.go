package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/middleware"
	"github.com/hitoshi/portal/internal/model"
)

// HealthChecker はストレージ媒体の疎通確認を行うインターフェース。
// *sql.DB を受け付けることができる。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// sessionResponse はGET /api/sessionのレスポンス。
type sessionResponse struct {
	State         auth.State               `json:"state"`
	Authenticated bool                     `json:"authenticated"`
	Verified      bool                     `json:"verified"`
	Connectivity  model.ConnectivityStatus `json:"connectivity"`
	User          *model.Session           `json:"user,omitempty"`
}

// connectivityResponse はGET /api/connectivityのレスポンス。
type connectivityResponse struct {
	Status model.ConnectivityStatus `json:"status"`
}

// APIHandler は別オリジンのクライアント向けのJSONエンドポイント。
type APIHandler struct {
	connectivity ConnectivityChecker
	health       HealthChecker
}

// NewAPIHandler はAPIHandlerを生成する。healthがnilの場合は常に正常と報告する。
func NewAPIHandler(conn ConnectivityChecker, health HealthChecker) *APIHandler {
	return &APIHandler{
		connectivity: conn,
		health:       health,
	}
}

// Session はブラウザコンテキストの認証状態を返す。トークンは含めない。
// GET /api/session
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	clientID, mgr, ok := requestClient(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State:         mgr.State(),
		Authenticated: mgr.IsAuthenticated(),
		Verified:      mgr.Verified(),
		Connectivity:  h.connectivity.Status(clientID),
		User:          mgr.Session(),
	})
}

// Connectivity はバックエンドの疎通確認を行い、結果を返す。
// GET /api/connectivity
func (h *APIHandler) Connectivity(w http.ResponseWriter, r *http.Request) {
	clientID, _, ok := requestClient(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, connectivityResponse{
		Status: h.connectivity.Check(r.Context(), clientID),
	})
}

// Health はプロセスとストレージ媒体の稼働状況を返す。
// GET /health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
				Code:     "STORAGE_UNAVAILABLE",
				Message:  "ストレージに接続できません。",
				Category: "system",
				Action:   "ストレージの稼働状況を確認してください。",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
