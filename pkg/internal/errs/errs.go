// Package errs 定义存储引擎对外暴露的错误分类.
// 调用方只依赖 Code 判断错误种类，不解析 Message.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误种类.
type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"
	CodeSourceMissing Code = "SOURCE_MISSING"
	CodeShareExpired  Code = "SHARE_EXPIRED"
	CodeValidation    Code = "VALIDATION"
	CodeUpstream      Code = "UPSTREAM"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeUnavailable   Code = "UNAVAILABLE"
)

// Error 携带种类、可读信息与底层原因.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回底层原因.
func (e *Error) Unwrap() error { return e.Err }

// Is 按种类匹配，使 errors.Is(err, errs.ErrNotFound) 对任意 NotFound 成立.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}

	return false
}

// 哨兵错误，仅用于 errors.Is 比较.
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrQuotaExceeded = &Error{Code: CodeQuotaExceeded, Message: "storage quota exceeded"}
	ErrSourceMissing = &Error{Code: CodeSourceMissing, Message: "stored bytes are missing"}
	ErrShareExpired  = &Error{Code: CodeShareExpired, Message: "share link has expired"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrUpstream      = &Error{Code: CodeUpstream, Message: "upstream failure"}
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
)

// New 创建指定种类的错误.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 用指定种类包装底层错误.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound 资源不存在、不属于调用方或已处于不允许该操作的状态.
func NotFound(format string, args ...any) *Error { return New(CodeNotFound, format, args...) }

// QuotaExceeded 批次总大小超出剩余配额.
func QuotaExceeded(format string, args ...any) *Error { return New(CodeQuotaExceeded, format, args...) }

// SourceMissing 恢复时物理字节已不存在.
func SourceMissing(format string, args ...any) *Error { return New(CodeSourceMissing, format, args...) }

// ShareExpired 分享链接已过期.
func ShareExpired(format string, args ...any) *Error { return New(CodeShareExpired, format, args...) }

// Validation 输入不合法.
func Validation(format string, args ...any) *Error { return New(CodeValidation, format, args...) }

// Upstream 字节存储或外部工具失败.
func Upstream(err error, format string, args ...any) *Error {
	return Wrap(CodeUpstream, err, format, args...)
}

// Unauthorized 凭据缺失或错误.
func Unauthorized(format string, args ...any) *Error { return New(CodeUnauthorized, format, args...) }

// Forbidden 凭据有效但不允许访问.
func Forbidden(format string, args ...any) *Error { return New(CodeForbidden, format, args...) }

// Conflict 唯一性冲突.
func Conflict(format string, args ...any) *Error { return New(CodeConflict, format, args...) }

// CodeOf 返回错误种类，非 *Error 返回 CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeInternal
}

// MessageOf 返回面向调用方的信息，内部错误不泄露细节.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "internal server error"
}

// HTTPStatus 把错误种类映射为 HTTP 状态码.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded, CodeSourceMissing, CodeValidation:
		return http.StatusBadRequest
	case CodeShareExpired:
		return http.StatusGone
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
