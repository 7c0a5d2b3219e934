package storage

import (
	"context"
	"sync"
)

// MemoryMedium はプロセス内メモリを使用した永続化媒体。
// 開発環境と単一インスタンス構成向け。プロセス再起動で内容は失われる。
type MemoryMedium struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewMemoryMedium はMemoryMediumを生成する。
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{
		entries: make(map[string]map[string]string),
	}
}

// Get は値を取得する。
func (m *MemoryMedium) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[clientID][key]
	return v, ok, nil
}

// Set は値を保存する。
func (m *MemoryMedium) Set(ctx context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.entries[clientID]
	if !ok {
		bucket = make(map[string]string)
		m.entries[clientID] = bucket
	}
	bucket[key] = value
	return nil
}

// Delete は指定キーの値を削除する。
// ブラウザコンテキストの値が空になった場合はバケットごと削除する。
func (m *MemoryMedium) Delete(ctx context.Context, clientID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.entries[clientID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(bucket, k)
	}
	if len(bucket) == 0 {
		delete(m.entries, clientID)
	}
	return nil
}

// Len は保持しているブラウザコンテキスト数を返す。テスト用。
func (m *MemoryMedium) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// compile-time interface check
var _ Medium = (*MemoryMedium)(nil)
