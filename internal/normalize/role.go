// Package normalize はバックエンドのレスポンスを内部のセッション表現へ正規化する。
//
// バックエンドのレスポンス形式は固定されていないため、候補フィールドの
// 宣言的なリストを順に評価し、最初に値が見つかったものを採用する。
package normalize

import (
	"strconv"
	"strings"

	"github.com/hitoshi/portal/internal/model"
)

// Scope はフィールドを探索するレスポンス内の位置。
type Scope string

const (
	ScopeRoot Scope = ""     // レスポンスのトップレベル
	ScopeData Scope = "data" // data オブジェクト
	ScopeUser Scope = "user" // user オブジェクト
)

// scopes は探索順のスコープ一覧。
var scopes = []Scope{ScopeRoot, ScopeData, ScopeUser}

// FieldCandidate はフィールド探索の候補（スコープとキーの組）。
type FieldCandidate struct {
	Scope Scope
	Key   string
}

// roleKeys はロールを表すキーの優先順。
var roleKeys = []string{
	"role", "roles", "userRole", "user_role",
	"authorities", "authority", "userType", "user_type", "type",
}

// nestedRoleKeys はロールがオブジェクトで表現されている場合に参照するキー。
var nestedRoleKeys = []string{"authority", "role", "name", "roleName"}

// RoleCandidates はロール探索の候補リスト。スコープ順、同一スコープ内はキー順。
var RoleCandidates = candidates(roleKeys...)

// candidates は全スコープについてキーの候補リストを組み立てる。
func candidates(keys ...string) []FieldCandidate {
	out := make([]FieldCandidate, 0, len(scopes)*len(keys))
	for _, s := range scopes {
		for _, k := range keys {
			out = append(out, FieldCandidate{Scope: s, Key: k})
		}
	}
	return out
}

// FallbackPolicy はレスポンスからロールを判別できなかった場合にロールを決める関数。
type FallbackPolicy func(email string) model.Role

// EmailMarkerPolicy はメールアドレスにmarkerを含む場合にADMINとみなすポリシーを返す。
// 大文字小文字は区別しない。markerが空の場合は常にSTUDENTを返す。
func EmailMarkerPolicy(marker string) FallbackPolicy {
	marker = strings.ToLower(strings.TrimSpace(marker))
	return func(email string) model.Role {
		if marker != "" && strings.Contains(strings.ToLower(email), marker) {
			return model.RoleAdmin
		}
		return model.RoleStudent
	}
}

// DefaultAdminMarker はEmailMarkerPolicyのデフォルトのマーカー。
const DefaultAdminMarker = "admin"

// Normalizer はレスポンスからロールとセッションを組み立てる。
type Normalizer struct {
	fallback FallbackPolicy
}

// NewNormalizer はNormalizerを生成する。fallbackがnilの場合はEmailMarkerPolicy("admin")を使用する。
func NewNormalizer(fallback FallbackPolicy) *Normalizer {
	if fallback == nil {
		fallback = EmailMarkerPolicy(DefaultAdminMarker)
	}
	return &Normalizer{fallback: fallback}
}

// Role はレスポンスからロールを判別する。常にSTUDENTかADMINを返す。
// loginEmailが空の場合はレスポンス中のメールアドレスをフォールバック判定に使用する。
func (n *Normalizer) Role(raw map[string]any, loginEmail string) model.Role {
	for _, c := range RoleCandidates {
		v, ok := lookup(raw, c)
		if !ok {
			continue
		}
		s := roleString(v)
		if s == "" {
			continue
		}
		if role, ok := model.ParseRole(canonicalRole(s)); ok {
			return role
		}
		// 最初に見つかった値が正規のロールでなければフォールバックへ進む
		break
	}

	email := strings.TrimSpace(loginEmail)
	if email == "" {
		email, _ = coalesce(raw, emailCandidates)
	}
	return n.fallback(email)
}

// canonicalRole は大文字化し ROLE_ 接頭辞を取り除く。
func canonicalRole(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "ROLE_")
}

// roleString はロール値を文字列に変換する。
// 配列は先頭要素、オブジェクトはnestedRoleKeysの値を使用する。
func roleString(v any) string {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return ""
		}
		return roleString(t[0])
	case map[string]any:
		for _, k := range nestedRoleKeys {
			if s := roleString(t[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		s, _ := stringify(v)
		return s
	}
}

// lookup はスコープとキーに対応する値を返す。
func lookup(raw map[string]any, c FieldCandidate) (any, bool) {
	if raw == nil {
		return nil, false
	}
	obj := raw
	if c.Scope != ScopeRoot {
		nested, ok := raw[string(c.Scope)].(map[string]any)
		if !ok {
			return nil, false
		}
		obj = nested
	}
	v, ok := obj[c.Key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// stringify はスカラー値を前後の空白を除いた文字列に変換する。
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
