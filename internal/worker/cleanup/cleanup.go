// Package cleanup は放置されたブラウザコンテキストの削除ジョブを提供する。
// last_seen_atが有効期間を超過したclient_contextsを定期的に削除する。
// client_storageはCASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxAge はブラウザコンテキストの既定の有効期間（秒）。client_id Cookieと同じ30日。
const DefaultMaxAge = 30 * 24 * 60 * 60

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は有効期間を超過したブラウザコンテキストの削除ジョブ。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	MaxAge int // ブラウザコンテキストの有効期間（秒）
}

// NewCleanupJob は新しいCleanupJobを生成する。maxAgeが0以下の場合は既定値を使う。
func NewCleanupJob(db Executor, logger *slog.Logger, maxAge int) *CleanupJob {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CleanupJob{
		db:     db,
		logger: logger,
		MaxAge: maxAge,
	}
}

// Run はlast_seen_atがMaxAge秒より古いブラウザコンテキストを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d seconds", j.MaxAge)

	query := `DELETE FROM client_contexts WHERE last_seen_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("ブラウザコンテキストのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("max_age_seconds", j.MaxAge),
		)
		return fmt.Errorf("ブラウザコンテキストのクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("ブラウザコンテキストのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("max_age_seconds", j.MaxAge),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。失敗はログに記録して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
