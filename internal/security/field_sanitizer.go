// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FieldSanitizer はプロフィールや登録フォームの入力値からHTMLマークアップを取り除き、
// バックエンドへ送信する前にプレーンテキストへ正規化する。
// bluemondayのStrictPolicyを使用し、すべてのタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FieldSanitizer はフォーム入力値のサニタイズ機能のインターフェースを定義する。
type FieldSanitizer interface {
	// Sanitize は入力値からタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(value string) string
}

// fieldSanitizer はFieldSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type fieldSanitizer struct {
	policy *bluemonday.Policy
}

// NewFieldSanitizer はFieldSanitizerの新しいインスタンスを生成する。
func NewFieldSanitizer() FieldSanitizer {
	return &fieldSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力値をプレーンテキストに正規化する。
func (s *fieldSanitizer) Sanitize(value string) string {
	if value == "" {
		return ""
	}
	// StrictPolicyは & や ' をエンティティに変換するため元に戻す
	cleaned := html.UnescapeString(s.policy.Sanitize(value))
	return strings.TrimSpace(cleaned)
}
