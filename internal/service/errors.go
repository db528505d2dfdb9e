package service

import (
	"errors"
	"fmt"

	"cafehub/internal/repository"
)

// 致命错误：统一包成 OpError 向上抛，调用方用 errors.Is 判断
var (
	ErrGoodsNotFound          = repository.ErrGoodsNotFound
	ErrAccountNotFound        = repository.ErrAccountNotFound
	ErrMessageNotFound        = repository.ErrMessageNotFound
	ErrConcurrentModification = repository.ErrConcurrentModification
	ErrCustomerNotFound       = errors.New("账户不存在或不是顾客")
)

// errRollback 业务结果需要放弃事务时从闭包返回，不向外暴露
var errRollback = errors.New("rollback")

// ValidationError 调用方参数不合法，在访问数据库之前返回
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("参数错误 %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// OpError 基础设施或数据不一致导致的失败，带上操作名和主键便于排查
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, key interface{}, err error) error {
	var existing *OpError
	if errors.As(err, &existing) {
		return err
	}
	return &OpError{Op: op, Key: fmt.Sprint(key), Err: err}
}

// IsValidation 是否参数校验错误
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
