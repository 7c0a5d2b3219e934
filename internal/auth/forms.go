package auth

// LoginForm はログインフォームの入力値。
type LoginForm struct {
	Email    string `json:"email" label:"メールアドレス" validate:"notblank,email"`
	Password string `json:"password" label:"パスワード" validate:"required"`
}

// RegisterForm はユーザー登録フォームの入力値。
type RegisterForm struct {
	Username  string `json:"username" label:"ユーザー名" validate:"notblank,max=50"`
	FirstName string `json:"firstName" label:"名" validate:"notblank,max=50"`
	LastName  string `json:"lastName" label:"姓" validate:"notblank,max=50"`
	Email     string `json:"email" label:"メールアドレス" validate:"notblank,email"`
	Phone     string `json:"phone" label:"電話番号" validate:"omitempty,max=32"`
	Password  string `json:"password" label:"パスワード" validate:"required"`
}

// ProfileForm はプロフィール更新フォームの入力値。
type ProfileForm struct {
	Username  string `json:"username" label:"ユーザー名" validate:"notblank,max=50"`
	FirstName string `json:"firstName" label:"名" validate:"notblank,max=50"`
	LastName  string `json:"lastName" label:"姓" validate:"notblank,max=50"`
	Email     string `json:"email" label:"メールアドレス" validate:"notblank,email"`
	Phone     string `json:"phone" label:"電話番号" validate:"omitempty,max=32"`
}

// PasswordForm はパスワード変更フォームの入力値。
type PasswordForm struct {
	CurrentPassword string `json:"currentPassword" label:"現在のパスワード" validate:"required"`
	NewPassword     string `json:"newPassword" label:"新しいパスワード" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" label:"確認用パスワード" validate:"required,eqfield=NewPassword"`
}
