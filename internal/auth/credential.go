package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialExpired はトークンがexpの過ぎたJWTかどうかを判定する。
// 署名は検証しない（検証はバックエンドの責務）。
// JWTとして解釈できないトークンやexpを持たないトークンは期限切れとみなさない。
func credentialExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
