// Package guard はロールに基づくビューへのアクセス判定を提供する。
package guard

import (
	"slices"
	"sort"
	"strings"

	"github.com/hitoshi/portal/internal/model"
)

// Decision はルートガードの判定結果。
type Decision string

const (
	// Wait は認証状態の確定を待つ。保護対象のビューは表示しない。
	Wait Decision = "wait"
	// RedirectLogin はログイン画面へ遷移させる。
	RedirectLogin Decision = "redirect_login"
	// RedirectUnauthorized は権限なし画面へ遷移させる。
	RedirectUnauthorized Decision = "redirect_unauthorized"
	// Render は保護対象のビューを表示する。
	Render Decision = "render"
)

// State は判定に使う認証状態のスナップショット。
type State struct {
	Loading       bool
	Authenticated bool
	Role          model.Role
}

// Decide は認証状態と許可ロールから判定を返す。
// 許可ロールが空の場合は認証済みであればどのロールでも表示する。
// 読み込み中は決してRenderを返さない。
func Decide(state State, allowed []model.Role) Decision {
	switch {
	case state.Loading:
		return Wait
	case !state.Authenticated:
		return RedirectLogin
	case len(allowed) > 0 && !slices.Contains(allowed, state.Role):
		return RedirectUnauthorized
	default:
		return Render
	}
}

// IsRedirect はリダイレクトを伴う判定かどうかを返す。
func (d Decision) IsRedirect() bool {
	return d == RedirectLogin || d == RedirectUnauthorized
}

// Navigation は1回の画面遷移におけるルートガードの評価を表す。
// 同じ状態で何度評価しても、リダイレクトの副作用は状態が変化したときに一度だけ発生させる。
type Navigation struct {
	allowed []model.Role
	lastKey string
	fired   bool
}

// NewNavigation はNavigationを生成する。
func NewNavigation(allowed ...model.Role) *Navigation {
	return &Navigation{allowed: allowed}
}

// Evaluate は判定を返す。
// 2つ目の戻り値は、リダイレクトの副作用をこの評価で実行すべきかどうか。
func (n *Navigation) Evaluate(state State) (Decision, bool) {
	d := Decide(state, n.allowed)

	key := n.key(state)
	if key != n.lastKey {
		n.lastKey = key
		n.fired = false
	}

	if !d.IsRedirect() || n.fired {
		return d, false
	}
	n.fired = true
	return d, true
}

// key は副作用の重複判定に使う状態のキーを返す。
func (n *Navigation) key(state State) string {
	roles := make([]string, len(n.allowed))
	for i, r := range n.allowed {
		roles[i] = string(r)
	}
	sort.Strings(roles)

	var b strings.Builder
	if state.Loading {
		b.WriteString("L")
	}
	if state.Authenticated {
		b.WriteString("A")
	}
	b.WriteString("|")
	b.WriteString(string(state.Role))
	b.WriteString("|")
	b.WriteString(strings.Join(roles, ","))
	return b.String()
}
