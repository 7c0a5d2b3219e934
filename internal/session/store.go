// Package session はブラウザコンテキストごとの認証セッションの永続化を提供する。
//
// セッションは固定キー "user" にJSONとして、ベアラートークンは固定キー "token" に
// そのまま保存する。両者は常に揃って存在するか、揃って存在しないかのどちらかである。
package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/storage"
)

const (
	// KeyUser はセッション本体の保存キー。
	KeyUser = "user"
	// KeyToken はベアラートークンの保存キー。
	KeyToken = "token"
)

// Store は1つのブラウザコンテキストに紐づくセッションストア。
type Store struct {
	medium   storage.Medium
	clientID string
	logger   *slog.Logger
}

// NewStore はStoreを生成する。
func NewStore(medium storage.Medium, clientID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		medium:   medium,
		clientID: clientID,
		logger:   logger,
	}
}

// Save はセッションとトークンを保存する。
// トークンを先に書き込み、セッションの書き込みに失敗した場合は両方を削除する。
func (s *Store) Save(ctx context.Context, sess *model.Session, token string) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	if err := s.medium.Set(ctx, s.clientID, KeyToken, token); err != nil {
		s.logger.Error("トークンの保存に失敗しました",
			slog.String("client_id", s.clientID),
			slog.String("error", err.Error()),
		)
		return err
	}
	if err := s.medium.Set(ctx, s.clientID, KeyUser, string(data)); err != nil {
		s.logger.Error("セッションの保存に失敗しました",
			slog.String("client_id", s.clientID),
			slog.String("error", err.Error()),
		)
		s.purge(ctx)
		return err
	}
	return nil
}

// Load は保存済みのセッションとトークンを読み込む。
// 存在しない場合、破損している場合、ロールが不正な場合、
// userとtokenの片方しか存在しない場合はfalseを返す。
// 存在しない場合以外は両エントリを削除する。
// 永続化媒体のエラーはログに記録し、存在しないものとして扱う。
func (s *Store) Load(ctx context.Context) (*model.Session, string, bool) {
	raw, hasUser, err := s.medium.Get(ctx, s.clientID, KeyUser)
	if err != nil {
		s.logMediumError("セッションの読み込みに失敗しました", err)
		return nil, "", false
	}
	token, hasToken, err := s.medium.Get(ctx, s.clientID, KeyToken)
	if err != nil {
		s.logMediumError("トークンの読み込みに失敗しました", err)
		return nil, "", false
	}

	if !hasUser && !hasToken {
		return nil, "", false
	}
	if hasUser != hasToken || token == "" {
		s.logger.Warn("userとtokenの整合性が取れていないため削除します",
			slog.String("client_id", s.clientID),
			slog.Bool("has_user", hasUser),
			slog.Bool("has_token", hasToken),
		)
		s.purge(ctx)
		return nil, "", false
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("保存済みセッションが破損しているため削除します",
			slog.String("client_id", s.clientID),
			slog.String("error", err.Error()),
		)
		s.purge(ctx)
		return nil, "", false
	}
	if !sess.Role.Valid() {
		s.logger.Warn("保存済みセッションのロールが不正なため削除します",
			slog.String("client_id", s.clientID),
			slog.String("role", string(sess.Role)),
		)
		s.purge(ctx)
		return nil, "", false
	}

	return &sess, token, true
}

// Clear はセッションとトークンを削除する。何度呼んでも同じ結果になる。
func (s *Store) Clear(ctx context.Context) {
	s.purge(ctx)
}

func (s *Store) purge(ctx context.Context) {
	if err := s.medium.Delete(ctx, s.clientID, KeyUser, KeyToken); err != nil {
		s.logMediumError("セッションの削除に失敗しました", err)
	}
}

func (s *Store) logMediumError(msg string, err error) {
	s.logger.Error(msg,
		slog.String("client_id", s.clientID),
		slog.String("error", err.Error()),
	)
}
