// Package storage はブラウザコンテキストごとのキーバリュー永続化媒体を提供する。
//
// ブラウザのlocalStorageに相当する領域をサーバー側に持ち、
// client_id Cookieで識別されるブラウザコンテキスト単位で値を保持する。
package storage

import "context"

// Medium はブラウザコンテキスト単位のキーバリュー永続化媒体のインターフェース。
type Medium interface {
	// Get は値を取得する。存在しない場合はfalseを返す。
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	// Set は値を保存する。既存の値は上書きする。
	Set(ctx context.Context, clientID, key, value string) error
	// Delete は指定キーの値を削除する。存在しないキーの削除はエラーにならない。
	Delete(ctx context.Context, clientID string, keys ...string) error
}
