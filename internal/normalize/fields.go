package normalize

import (
	"github.com/hitoshi/portal/internal/model"
)

var (
	idCandidates        = candidates("id", "userId", "user_id")
	usernameCandidates  = candidates("username", "userName", "user_name")
	firstNameCandidates = candidates("firstName", "first_name", "firstname")
	lastNameCandidates  = candidates("lastName", "last_name", "lastname")
	emailCandidates     = candidates("email", "emailAddress", "email_address", "mail")
	phoneCandidates     = candidates("phone", "phoneNumber", "phone_number")
	tokenCandidates     = candidates("token", "accessToken", "access_token", "jwt")
)

// coalesce は候補を順に評価し、最初の空でない値を返す。
func coalesce(raw map[string]any, cs []FieldCandidate) (string, bool) {
	for _, c := range cs {
		v, ok := lookup(raw, c)
		if !ok {
			continue
		}
		if s, ok := stringify(v); ok {
			return s, true
		}
	}
	return "", false
}

// SessionFromResponse はレスポンスからセッションを組み立てる。
// メールアドレスが見つからない場合はMALFORMED_RESPONSEエラーを返す。
func (n *Normalizer) SessionFromResponse(raw map[string]any, loginEmail string) (*model.Session, error) {
	email, ok := coalesce(raw, emailCandidates)
	if !ok {
		return nil, model.NewMalformedResponseError("email is missing")
	}

	id, _ := coalesce(raw, idCandidates)
	username, _ := coalesce(raw, usernameCandidates)
	firstName, _ := coalesce(raw, firstNameCandidates)
	lastName, _ := coalesce(raw, lastNameCandidates)
	phone, _ := coalesce(raw, phoneCandidates)

	return &model.Session{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Role:      n.Role(raw, loginEmail),
	}, nil
}

// TokenFromResponse はレスポンスからベアラートークンを取り出す。
func TokenFromResponse(raw map[string]any) (string, bool) {
	return coalesce(raw, tokenCandidates)
}
