package util

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateID 校验路径参数中的 UUID
func ValidateID(id string) error {
	if err := validate.Var(id, "required,uuid"); err != nil {
		return ErrInvalidID
	}
	return nil
}

// ValidateStruct 供不经过 gin binding 的输入使用
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
