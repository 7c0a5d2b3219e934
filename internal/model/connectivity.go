package model

// ConnectivityStatus はリモートバックエンドへの到達性を表す。
type ConnectivityStatus string

const (
	// ConnectivityChecking は疎通確認中であることを示す。
	ConnectivityChecking ConnectivityStatus = "checking"
	// ConnectivityOnline はバックエンドが何らかのHTTPステータスで応答したことを示す。
	ConnectivityOnline ConnectivityStatus = "online"
	// ConnectivityOffline はトランスポート層で失敗したことを示す。
	ConnectivityOffline ConnectivityStatus = "offline"
)
