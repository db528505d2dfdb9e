// Package validator 账户字段校验：手机号、性别、用户名、密码。
// 校验在打开事务之前完成，不访问数据库。
package validator

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidPhone    = errors.New("手机号必须是11位数字")
	ErrInvalidGender   = errors.New("性别只能是 0(男) 或 1(女)")
	ErrInvalidUsername = errors.New("用户名不能为空且不超过64个字符")
	ErrInvalidPassword = errors.New("密码不能为空且不超过72个字节")
)

const (
	phoneTag    = "len=11,number"
	genderTag   = "oneof=0 1"
	usernameTag = "required,max=64"
	// bcrypt 只使用前72字节
	passwordTag = "required,max=72"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Phone 校验手机号，空串表示清空，视为合法
func Phone(phone string) error {
	if phone == "" {
		return nil
	}
	if err := instance().Var(phone, phoneTag); err != nil {
		return ErrInvalidPhone
	}
	return nil
}

func Gender(gender int8) error {
	if err := instance().Var(gender, genderTag); err != nil {
		return ErrInvalidGender
	}
	return nil
}

// Username 用户名去掉首尾空白后不能为空
func Username(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidUsername
	}
	if err := instance().Var(username, usernameTag); err != nil {
		return ErrInvalidUsername
	}
	return nil
}

func Password(password string) error {
	if len(password) > 72 {
		return ErrInvalidPassword
	}
	if err := instance().Var(password, passwordTag); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// AccountFields 可选的账户资料字段，nil 表示未提供
type AccountFields struct {
	Username *string
	Phone    *string
	Gender   *int8
}

// Account 依次校验提供了的字段，返回第一个错误
func Account(f AccountFields) error {
	if f.Username != nil {
		if err := Username(*f.Username); err != nil {
			return err
		}
	}
	if f.Phone != nil {
		if err := Phone(*f.Phone); err != nil {
			return err
		}
	}
	if f.Gender != nil {
		if err := Gender(*f.Gender); err != nil {
			return err
		}
	}
	return nil
}
