package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresMedium はPostgreSQLを使用した永続化媒体。
// client_contextsにブラウザコンテキストを、client_storageに値を保持する。
type PostgresMedium struct {
	db *sql.DB
}

// NewPostgresMedium はPostgresMediumを生成する。
func NewPostgresMedium(db *sql.DB) *PostgresMedium {
	return &PostgresMedium{db: db}
}

// Get は値を取得する。
// 読み込みのたびにブラウザコンテキストのlast_seen_atも更新する。
func (r *PostgresMedium) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`WITH touched AS (
		     UPDATE client_contexts SET last_seen_at = now()
		     WHERE client_id = $1
		     RETURNING client_id
		 )
		 SELECT s.value FROM client_storage s
		 JOIN touched t ON t.client_id = s.client_id
		 WHERE s.key = $2`,
		clientID, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client storage: %w", err)
	}
	return value, true, nil
}

// Set は値を保存する。
// ブラウザコンテキストのlast_seen_atも同一トランザクションで更新する。
func (r *PostgresMedium) Set(ctx context.Context, clientID, key, value string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO client_contexts (client_id, created_at, last_seen_at)
		 VALUES ($1, now(), now())
		 ON CONFLICT (client_id) DO UPDATE SET last_seen_at = now()`,
		clientID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client context: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (client_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set client storage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client storage: %w", err)
	}
	return nil
}

// Delete は指定キーの値を削除する。
func (r *PostgresMedium) Delete(ctx context.Context, clientID string, keys ...string) error {
	for _, key := range keys {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM client_storage WHERE client_id = $1 AND key = $2`,
			clientID, key,
		)
		if err != nil {
			return fmt.Errorf("failed to delete client storage: %w", err)
		}
	}
	return nil
}

// compile-time interface check
var _ Medium = (*PostgresMedium)(nil)
