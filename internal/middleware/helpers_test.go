package middleware

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/portal/internal/auth"
	"github.com/hitoshi/portal/internal/model"
	"github.com/hitoshi/portal/internal/session"
	"github.com/hitoshi/portal/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newAnonymousManager は未認証のManagerを生成する。
func newAnonymousManager(t *testing.T) *auth.Manager {
	t.Helper()
	store := session.NewStore(storage.NewMemoryMedium(), "client-1", discardLogger())
	mgr := auth.NewManager(store, discardLogger())
	mgr.Init(context.Background())
	return mgr
}

// newAuthenticatedManager は指定ロールで認証済みのManagerを生成する。
func newAuthenticatedManager(t *testing.T, role model.Role) *auth.Manager {
	t.Helper()
	mgr := newAnonymousManager(t)
	sess := &model.Session{ID: "1", Email: "user@example.com", Role: role}
	if err := mgr.Login(context.Background(), sess, "tok"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return mgr
}
