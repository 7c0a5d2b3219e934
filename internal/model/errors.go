package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, backend, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTransportFailure    = "TRANSPORT_FAILURE"
	ErrCodeLoginTimeout        = "LOGIN_TIMEOUT"
	ErrCodeBackendOffline      = "BACKEND_OFFLINE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeAuthorizationFailed = "AUTHORIZATION_FAILED"
	ErrCodeEndpointNotFound    = "ENDPOINT_NOT_FOUND"
	ErrCodeServerFailure       = "SERVER_FAILURE"
	ErrCodeMalformedResponse   = "MALFORMED_RESPONSE"
	ErrCodeRequestRejected     = "REQUEST_REJECTED"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
)

// HasCode はerrがAPIErrorであり、かつ指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewTransportFailureError はバックエンドに到達できない場合のエラーを生成する。
func NewTransportFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeTransportFailure,
		Message:  "サーバーに接続できません。",
		Category: "backend",
		Action:   "ネットワーク接続を確認し、「再試行」を押してください。",
	}
}

// NewLoginTimeoutError はバックエンドが制限時間内に応答しなかった場合のエラーを生成する。
func NewLoginTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginTimeout,
		Message:  "サーバーからの応答がタイムアウトしました。",
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBackendOfflineError はオフライン判定中のログインをローカルで拒否する際のエラーを生成する。
func NewBackendOfflineError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendOffline,
		Message:  "サーバーがオフラインのためログインできません。",
		Category: "backend",
		Action:   "「再試行」で接続を確認してから、もう一度ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報が誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewAuthorizationFailedError はバックエンドが403を返した場合のエラーを生成する。
func NewAuthorizationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthorizationFailed,
		Message:  "サーバーがリクエストを拒否しました（403）。",
		Category: "backend",
		Action:   "バックエンドのCORSまたはセキュリティ設定を確認してください。",
	}
}

// NewEndpointNotFoundError はバックエンドが404を返した場合のエラーを生成する。
func NewEndpointNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeEndpointNotFound,
		Message:  fmt.Sprintf("APIエンドポイントが見つかりません: %s", path),
		Category: "backend",
		Action:   "BACKEND_URLの設定とバックエンドのデプロイ状況を確認してください。",
	}
}

// NewServerFailureError はバックエンドが5xxを返した場合のエラーを生成する。
func NewServerFailureError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeServerFailure,
		Message:  fmt.Sprintf("サーバーでエラーが発生しました（%d）。", status),
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMalformedResponseError はバックエンドの応答に必要な項目が含まれない場合のエラーを生成する。
func NewMalformedResponseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedResponse,
		Message:  fmt.Sprintf("サーバーの応答を解釈できません: %s", reason),
		Category: "backend",
		Action:   "時間をおいて再度お試しください。解決しない場合は管理者に連絡してください。",
	}
}

// NewRequestRejectedError はバックエンドが業務エラーを返した場合のエラーを生成する。
// messageにはバックエンドが返したエラーメッセージをそのまま使う。
func NewRequestRejectedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestRejected,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthenticatedError はセッションがない、または認証情報が失効した場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力値の検証に失敗した場合のエラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
