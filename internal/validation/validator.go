// Package validation はフォーム入力値の検証を提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/portal/internal/model"
)

// notBlankTag は空白のみの文字列を拒否するカスタムタグ。
const notBlankTag = "notblank"

// Validator はgo-playground/validatorをラップし、検証エラーをAPIErrorに変換する。
type Validator struct {
	validate *validator.Validate
}

// New はValidatorを生成する。
// エラーメッセージの項目名には label タグを、なければ json タグの名前を使用する。
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})

	return &Validator{validate: v}
}

// Struct は構造体を検証する。
// 検証に失敗した場合は最初の項目のメッセージを持つVALIDATION_FAILEDエラーを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("入力値の検証に失敗しました: %w", err)
	}
	return model.NewValidationError(message(verrs[0]))
}

// message は検証エラーを日本語のメッセージに変換する。
func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", notBlankTag:
		return fmt.Sprintf("%sを入力してください。", field)
	case "email":
		return fmt.Sprintf("%sの形式が正しくありません。", field)
	case "min":
		return fmt.Sprintf("%sは%s文字以上で入力してください。", field, fe.Param())
	case "max":
		return fmt.Sprintf("%sは%s文字以内で入力してください。", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%sが一致しません。", field)
	default:
		return fmt.Sprintf("%sの値が正しくありません。", field)
	}
}
