package errcode

import (
	"errors"
	"net/http"
	"strings"
)

// Error 是对外可见的业务错误：HTTP 状态码、机器可读的错误码与面向用户的消息。
// 未被识别为 *Error 的错误一律按 INTERNAL_ERROR 处理，消息不外泄。
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is 按错误码比较，便于 errors.Is 匹配携带不同消息的同类错误。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Status == e.Status
}

// New 构造业务错误。
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithMessage 复制错误并替换消息。
func (e *Error) WithMessage(message string) *Error {
	return &Error{Status: e.Status, Code: e.Code, Message: message}
}

// 错误码约定：
// - 4xx：调用方可修正的错误，消息可直接展示
// - 5xx：系统错误，消息固定为 "Internal server error"
var (
	ErrUnauthorized       = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrInvalidToken       = New(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
	ErrInvalidCredentials = New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrInvalidLinkToken   = New(http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired token")
	ErrProfileNotFound    = New(http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found")
	ErrLinkNotFound       = New(http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
	ErrUserNotFound       = New(http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrNotFound           = New(http.StatusNotFound, "NOT_FOUND", "Page not found")
	ErrEmailExists        = New(http.StatusConflict, "EMAIL_EXISTS", "Email is already registered")
	ErrSlugTaken          = New(http.StatusConflict, "SLUG_TAKEN", "Slug is already in use")
	ErrMaxLinks           = New(http.StatusBadRequest, "MAX_LINKS", "A profile can have at most 50 links")
	ErrMinProfile         = New(http.StatusBadRequest, "MIN_PROFILE", "At least one profile is required")
	ErrPayloadTooLarge    = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File is too large")
	ErrUnsupportedMedia   = New(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", "Only image files are allowed")
	ErrRateLimited        = New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later")
	ErrInternal           = New(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
)

// CodeValidation 是请求体校验失败时的错误码。
const CodeValidation = "VALIDATION_ERROR"

// Validation 将多条字段错误以 ", " 拼接为一个 400 错误。
func Validation(messages ...string) *Error {
	msg := strings.Join(messages, ", ")
	if msg == "" {
		msg = "Invalid request"
	}
	return New(http.StatusBadRequest, CodeValidation, msg)
}

// From 提取错误链中的 *Error。
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
