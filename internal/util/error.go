package util

import (
	"errors"
	"fmt"
)

// 错误码，API 层据此映射 HTTP 状态
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeGone         = "GONE"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// FieldError 描述单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type CustomError struct {
	Message string
	Code    string
	Fields  []FieldError
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，errors.Is(err, ErrNotFound) 对任意 NOT_FOUND 错误成立
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotFound     = &CustomError{Message: "resource not found", Code: CodeNotFound}
	ErrGone         = &CustomError{Message: "resource is no longer available", Code: CodeGone}
	ErrConflict     = &CustomError{Message: "resource already exists", Code: CodeConflict}
	ErrUnauthorized = &CustomError{Message: "unauthorized", Code: CodeUnauthorized}
	ErrDatabase     = &CustomError{Message: "database operation failed", Code: CodeInternal}
)

func Validation(message string, fields ...FieldError) error {
	return &CustomError{Message: message, Code: CodeValidation, Fields: fields}
}

func NotFound(message string) error {
	return &CustomError{Message: message, Code: CodeNotFound}
}

func Gone(message string) error {
	return &CustomError{Message: message, Code: CodeGone}
}

func Conflict(message string) error {
	return &CustomError{Message: message, Code: CodeConflict}
}

func Unauthorized(message string) error {
	return &CustomError{Message: message, Code: CodeUnauthorized}
}

// Internal 包装存储层或未知错误，对外只暴露通用信息
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		return err
	}
	return &CustomError{Message: "internal server error", Code: CodeInternal, Err: err}
}

// CodeOf 返回错误码，非 CustomError 一律视为内部错误
func CodeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}
