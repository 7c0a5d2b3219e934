package normalize

import (
	"testing"

	"github.com/hitoshi/portal/internal/model"
)

func TestSessionFromResponse_FlatPayload(t *testing.T) {
	n := NewNormalizer(nil)
	raw := map[string]any{
		"id":        float64(7),
		"username":  "alice",
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     "alice@example.com",
		"phone":     "090-1111-2222",
		"role":      "STUDENT",
		"token":     "jwt-token",
	}

	sess, err := n.SessionFromResponse(raw, "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.Session{
		ID:        "7",
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
		Phone:     "090-1111-2222",
		Role:      model.RoleStudent,
	}
	if *sess != want {
		t.Errorf("got %+v, want %+v", *sess, want)
	}
}

func TestSessionFromResponse_NestedPayload(t *testing.T) {
	n := NewNormalizer(nil)
	raw := map[string]any{
		"accessToken": "jwt",
		"data": map[string]any{
			"user_id":    "u-1",
			"first_name": "Bob",
		},
		"user": map[string]any{
			"emailAddress": "bob@example.com",
			"authorities":  []any{map[string]any{"authority": "ROLE_ADMIN"}},
		},
	}

	sess, err := n.SessionFromResponse(raw, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "u-1" || sess.FirstName != "Bob" || sess.Email != "bob@example.com" {
		t.Errorf("fields not coalesced: %+v", sess)
	}
	if sess.Role != model.RoleAdmin {
		t.Errorf("expected ADMIN, got %q", sess.Role)
	}

	token, ok := TokenFromResponse(raw)
	if !ok || token != "jwt" {
		t.Errorf("TokenFromResponse = (%q, %v)", token, ok)
	}
}

func TestSessionFromResponse_MissingEmail(t *testing.T) {
	n := NewNormalizer(nil)

	_, err := n.SessionFromResponse(map[string]any{"id": "1", "role": "ADMIN"}, "admin@x.com")
	if !model.HasCode(err, model.ErrCodeMalformedResponse) {
		t.Errorf("expected MALFORMED_RESPONSE, got %v", err)
	}
}

// ロールのないレスポンスでもログイン時のメールアドレスでADMINと判定されることを検証
func TestSessionFromResponse_AdminEmailFallback(t *testing.T) {
	n := NewNormalizer(nil)
	raw := map[string]any{"email": "admin@x.com", "token": "t"}

	sess, err := n.SessionFromResponse(raw, "admin@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Role != model.RoleAdmin {
		t.Errorf("expected ADMIN, got %q", sess.Role)
	}
}

func TestTokenFromResponse_Missing(t *testing.T) {
	if _, ok := TokenFromResponse(map[string]any{"token": "   "}); ok {
		t.Error("expected blank token to be treated as missing")
	}
	if _, ok := TokenFromResponse(nil); ok {
		t.Error("expected nil payload to have no token")
	}
}
