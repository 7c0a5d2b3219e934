// Package model はドメインモデルを定義する。
package model

import "strings"

// Role はビューへのアクセスを制御するロール。
// 正規化後は必ずRoleStudentかRoleAdminのいずれかになる。
type Role string

const (
	// RoleStudent は一般利用者（学生）ロール。
	RoleStudent Role = "STUDENT"
	// RoleAdmin は管理者ロール。
	RoleAdmin Role = "ADMIN"
)

// Valid はロールが正規の値かどうかを判定する。
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// ParseRole は文字列を正規のロールに変換する。
// 正規の値でない場合はfalseを返す。
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Session はブラウザコンテキストで認証済みのユーザーを表す。
// ログイン成功またはプロフィール再取得のたびに丸ごと置き換えられる。
type Session struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// DisplayName は画面表示用の氏名を返す。
// 氏名が空の場合はユーザー名、それも空ならメールアドレスを返す。
func (s *Session) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name != "" {
		return name
	}
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}
