package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/portal/internal/backend"
	"github.com/hitoshi/portal/internal/metrics"
	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/normalize"
	"github.com/hitoshi/portal/internal/security"
	"github.com/hitoshi/portal/internal/validation"
)

// Backend はバックエンドAPIのインターフェース。
// テスト時にモックに差し替え可能。
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (map[string]any, error)
	Register(ctx context.Context, req backend.RegisterRequest) (map[string]any, error)
	GetProfile(ctx context.Context, token string) (map[string]any, error)
	UpdateProfile(ctx context.Context, token string, req backend.ProfileUpdate) (map[string]any, error)
	ChangePassword(ctx context.Context, token string, req backend.PasswordChange) (map[string]any, error)
	DeleteProfile(ctx context.Context, token string) (map[string]any, error)
}

// Connectivity はブラウザコンテキストごとの接続状態のインターフェース。
type Connectivity interface {
	Status(clientID string) model.ConnectivityStatus
	BeginLogin(clientID string)
	MarkOffline(clientID string)
	MarkOnline(clientID string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	LoginTimeout time.Duration // ログイン要求の制限時間
}

// Service はバックエンドと連携したアカウント操作を提供する。
type Service struct {
	backend      Backend
	connectivity Connectivity
	normalizer   *normalize.Normalizer
	validator    *validation.Validator
	sanitizer    security.FieldSanitizer
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	config       ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	b Backend,
	conn Connectivity,
	normalizer *normalize.Normalizer,
	v *validation.Validator,
	sanitizer security.FieldSanitizer,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.LoginTimeout <= 0 {
		config.LoginTimeout = 10 * time.Second
	}
	return &Service{
		backend:      b,
		connectivity: conn,
		normalizer:   normalizer,
		validator:    v,
		sanitizer:    sanitizer,
		metrics:      mc,
		logger:       logger,
		config:       config,
	}
}

// Login はバックエンドで認証し、成功すればManagerを認証済みにする。
// 接続状態がofflineの場合はバックエンドを呼び出さずにBACKEND_OFFLINEを返す。
// 失敗した場合、Managerの状態は変更しない。
func (s *Service) Login(ctx context.Context, mgr *Manager, clientID string, form LoginForm) (*model.Session, error) {
	form.Email = strings.TrimSpace(form.Email)

	sess, err := s.login(ctx, mgr, clientID, form)
	if err != nil {
		s.metrics.RecordLogin(errorCode(err))
		s.logger.Info("ログインに失敗しました",
			slog.String("client_id", clientID),
			slog.String("code", errorCode(err)),
		)
		return nil, err
	}

	s.metrics.RecordLogin("success")
	s.logger.Info("ログインしました",
		slog.String("client_id", clientID),
		slog.String("role", string(sess.Role)),
	)
	return sess, nil
}

func (s *Service) login(ctx context.Context, mgr *Manager, clientID string, form LoginForm) (*model.Session, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, err
	}

	if s.connectivity.Status(clientID) == model.ConnectivityOffline {
		return nil, model.NewBackendOfflineError()
	}
	s.connectivity.BeginLogin(clientID)

	callCtx, cancel := context.WithTimeout(ctx, s.config.LoginTimeout)
	defer cancel()

	raw, err := s.backend.Login(callCtx, backend.LoginRequest{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		s.observeTransport(clientID, err)
		return nil, err
	}
	s.connectivity.MarkOnline(clientID)

	sess, err := s.normalizer.SessionFromResponse(raw, form.Email)
	if err != nil {
		return nil, err
	}
	token, ok := normalize.TokenFromResponse(raw)
	if !ok {
		return nil, model.NewMalformedResponseError("token is missing")
	}

	if err := mgr.Login(ctx, sess, token); err != nil {
		return nil, err
	}
	return sess, nil
}

// Register は新規ユーザーを登録する。登録後のログインは行わない。
func (s *Service) Register(ctx context.Context, clientID string, form RegisterForm) error {
	form.Username = s.sanitizer.Sanitize(form.Username)
	form.FirstName = s.sanitizer.Sanitize(form.FirstName)
	form.LastName = s.sanitizer.Sanitize(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = s.sanitizer.Sanitize(form.Phone)

	if err := s.validator.Struct(form); err != nil {
		return err
	}

	_, err := s.backend.Register(ctx, backend.RegisterRequest{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		Password:  form.Password,
	})
	if err != nil {
		s.observeTransport(clientID, err)
		return err
	}

	s.logger.Info("ユーザーを登録しました", slog.String("client_id", clientID))
	return nil
}

// RefreshProfile はプロフィールを再取得してセッションを置き換える。
// 資格情報が拒否された場合は強制ログアウトする。
func (s *Service) RefreshProfile(ctx context.Context, mgr *Manager) (*model.Session, error) {
	current := mgr.Session()
	if current == nil {
		return nil, model.NewUnauthenticatedError()
	}

	raw, err := s.backend.GetProfile(ctx, mgr.Token())
	if err != nil {
		return nil, s.handleCredentialError(ctx, mgr, err)
	}

	sess, err := s.normalizer.SessionFromResponse(raw, current.Email)
	if err != nil {
		return nil, err
	}
	if err := mgr.Refresh(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateProfile はプロフィールを更新し、最新のプロフィールを再取得する。
func (s *Service) UpdateProfile(ctx context.Context, mgr *Manager, form ProfileForm) (*model.Session, error) {
	if !mgr.IsAuthenticated() {
		return nil, model.NewUnauthenticatedError()
	}

	form.Username = s.sanitizer.Sanitize(form.Username)
	form.FirstName = s.sanitizer.Sanitize(form.FirstName)
	form.LastName = s.sanitizer.Sanitize(form.LastName)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = s.sanitizer.Sanitize(form.Phone)

	if err := s.validator.Struct(form); err != nil {
		return nil, err
	}

	_, err := s.backend.UpdateProfile(ctx, mgr.Token(), backend.ProfileUpdate{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
	})
	if err != nil {
		return nil, s.handleCredentialError(ctx, mgr, err)
	}

	return s.RefreshProfile(ctx, mgr)
}

// ChangePassword はパスワードを変更する。
// 新しいパスワードと確認用の一致、8文字以上であることを送信前に検証する。
func (s *Service) ChangePassword(ctx context.Context, mgr *Manager, form PasswordForm) error {
	if !mgr.IsAuthenticated() {
		return model.NewUnauthenticatedError()
	}
	if err := s.validator.Struct(form); err != nil {
		return err
	}

	_, err := s.backend.ChangePassword(ctx, mgr.Token(), backend.PasswordChange{
		CurrentPassword: form.CurrentPassword,
		NewPassword:     form.NewPassword,
		ConfirmPassword: form.ConfirmPassword,
	})
	if err != nil {
		return s.handleCredentialError(ctx, mgr, err)
	}
	return nil
}

// DeleteAccount はアカウントを削除し、ログアウトする。
func (s *Service) DeleteAccount(ctx context.Context, mgr *Manager) error {
	if !mgr.IsAuthenticated() {
		return model.NewUnauthenticatedError()
	}

	if _, err := s.backend.DeleteProfile(ctx, mgr.Token()); err != nil {
		return s.handleCredentialError(ctx, mgr, err)
	}

	email := mgr.Session().Email
	mgr.Logout(ctx)
	s.logger.Info("アカウントを削除しました", slog.String("email", email))
	return nil
}

// handleCredentialError はバックエンドが資格情報を拒否した場合に強制ログアウトする。
func (s *Service) handleCredentialError(ctx context.Context, mgr *Manager, err error) error {
	if model.HasCode(err, model.ErrCodeUnauthenticated) {
		mgr.Logout(ctx)
		s.metrics.RecordForcedLogout()
		s.logger.Warn("バックエンドに資格情報を拒否されたためログアウトしました")
	}
	return err
}

// observeTransport は通信失敗を接続状態に反映する。タイムアウトも通信失敗として扱う。
func (s *Service) observeTransport(clientID string, err error) {
	if model.HasCode(err, model.ErrCodeTransportFailure) || model.HasCode(err, model.ErrCodeLoginTimeout) {
		s.connectivity.MarkOffline(clientID)
	}
}

// errorCode はエラーのコードを返す。APIErrorでない場合は "internal"。
func errorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "internal"
}
