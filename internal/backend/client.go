// Package backend はリモートの認証・プロフィールバックエンドのHTTPクライアントを提供する。
//
// レスポンスは固定スキーマにデコードせず map[string]any として返す。
// フィールドの解釈は normalize パッケージが担う。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/model"
)

// バックエンドのエンドポイント
const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathProfile  = "/api/profile"
	PathPassword = "/api/profile/password"
)

// maxResponseSize はレスポンスボディの最大サイズ（1MB）。
const maxResponseSize = 1 << 20

// credentialRejectedMessages はバックエンドが資格情報を受け付けなかったことを示す400応答のメッセージ。
var credentialRejectedMessages = []string{
	"User not authenticated",
	"Authenticated user not found in DB",
}

// Client はバックエンドのHTTPクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(baseURL string, httpClient *http.Client, mc metrics.MetricsCollector, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    mc,
		logger:     logger,
	}
}

// LoginRequest はログインのリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest はユーザー登録のリクエストボディ。
type RegisterRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// ProfileUpdate はプロフィール更新のリクエストボディ。
type ProfileUpdate struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// PasswordChange はパスワード変更のリクエストボディ。
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Login はメールアドレスとパスワードで認証する。
func (c *Client) Login(ctx context.Context, req LoginRequest) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, PathLogin, "", req)
}

// Register は新規ユーザーを登録する。
func (c *Client) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, PathRegister, "", req)
}

// GetProfile は認証済みユーザーのプロフィールを取得する。
func (c *Client) GetProfile(ctx context.Context, token string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, PathProfile, token, nil)
}

// UpdateProfile はプロフィールを更新する。
func (c *Client) UpdateProfile(ctx context.Context, token string, req ProfileUpdate) (map[string]any, error) {
	return c.do(ctx, http.MethodPut, PathProfile, token, req)
}

// ChangePassword はパスワードを変更する。
func (c *Client) ChangePassword(ctx context.Context, token string, req PasswordChange) (map[string]any, error) {
	return c.do(ctx, http.MethodPut, PathPassword, token, req)
}

// DeleteProfile はアカウントを削除する。
func (c *Client) DeleteProfile(ctx context.Context, token string) (map[string]any, error) {
	return c.do(ctx, http.MethodDelete, PathProfile, token, nil)
}

// do はリクエストを送信し、レスポンスをmap[string]anyにデコードする。
// tokenが空でない場合はAuthorizationヘッダーにベアラートークンを設定する。
func (c *Client) do(ctx context.Context, method, path, token string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendStatus(resp.StatusCode)
	c.metrics.RecordBackendLatency(time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.transportError(ctx, method, path, err)
	}

	payload, decodeErr := decode(data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp.StatusCode, path, token != "", payload)
		c.logger.Warn("バックエンドがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return nil, apiErr
	}

	if decodeErr != nil {
		c.logger.Error("バックエンドのレスポンスのパースに失敗しました",
			slog.String("path", path),
			slog.String("error", decodeErr.Error()),
		)
		return nil, model.NewMalformedResponseError("response body is not a JSON object")
	}
	return payload, nil
}

// transportError は通信エラーをエラー分類に変換する。
func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}

	c.logger.Error("バックエンドの呼び出しに失敗しました",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)

	if isTimeout(err) {
		return model.NewLoginTimeoutError()
	}
	return model.NewTransportFailureError()
}

// isTimeout はエラーがタイムアウトによるものかを判定する。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decode はレスポンスボディをJSONオブジェクトとしてデコードする。空のボディは空のmapとする。
func decode(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// statusError はエラーステータスをエラー分類に変換する。
// authenticatedはベアラートークン付きの呼び出しかどうか。
func statusError(status int, path string, authenticated bool, payload map[string]any) *model.APIError {
	message := errorMessage(payload)

	switch {
	case status == http.StatusUnauthorized:
		if authenticated {
			return model.NewUnauthenticatedError()
		}
		return model.NewInvalidCredentialsError()
	case status == http.StatusBadRequest && authenticated && isCredentialRejected(message):
		return model.NewUnauthenticatedError()
	case status == http.StatusForbidden:
		return model.NewAuthorizationFailedError()
	case status == http.StatusNotFound:
		return model.NewEndpointNotFoundError(path)
	case status >= 500:
		return model.NewServerFailureError(status)
	default:
		if message == "" {
			message = fmt.Sprintf("リクエストが拒否されました（%d）。", status)
		}
		return model.NewRequestRejectedError(message)
	}
}

// errorMessage はバックエンドのエラーレスポンスから error または message を取り出す。
func errorMessage(payload map[string]any) string {
	for _, key := range []string{"error", "message"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func isCredentialRejected(message string) bool {
	for _, m := range credentialRejectedMessages {
		if strings.EqualFold(message, m) {
			return true
		}
	}
	return false
}
