package errorx

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// I18nError is an application error with a stable code, an HTTP status hint
// and a localizable message. The With* methods return modified copies, so
// package level sentinels can be shared safely.
type I18nError struct {
	cause              error
	MessageKey         string
	MessageArgs        map[string]any
	MessagePluralCount any
	HTTPCode           int
	Code               Code
}

func (e *I18nError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.MessageKey)
	}

	return fmt.Sprintf("[%s] %s: %s", e.Code, e.MessageKey, e.cause)
}

func (e *I18nError) Unwrap() error {
	return e.cause
}

// Is reports errors with the same Code as equal.
func (e *I18nError) Is(target error) bool {
	if target == nil {
		return e == nil
	}
	t, ok := target.(*I18nError)
	if !ok {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

// Localize renders the message in the localizer's language. Unknown message
// keys fall back to the key itself.
func (e *I18nError) Localize(localizer *i18n.Localizer) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    e.MessageKey,
		TemplateData: e.MessageArgs,
		PluralCount:  e.MessagePluralCount,
	})
	if err != nil {
		return e.MessageKey
	}
	return msg
}

func (e *I18nError) HTTPStatusCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}

	return HTTPStatusCode(e.Code)
}

func (e I18nError) WithHTTPCode(code int) *I18nError {
	e.HTTPCode = code
	return &e
}

func (e I18nError) WithArgs(args map[string]any) *I18nError {
	merged := make(map[string]any, len(e.MessageArgs)+len(args))
	maps.Copy(merged, e.MessageArgs)
	maps.Copy(merged, args)
	e.MessageArgs = merged
	return &e
}

func (e I18nError) WithCause(cause error) *I18nError {
	e.cause = cause
	return &e
}

// RetryAfter returns the RetryAfter message argument in seconds, if present.
func (e *I18nError) RetryAfter() (int, bool) {
	if e == nil || e.MessageArgs == nil {
		return 0, false
	}
	v, ok := e.MessageArgs["RetryAfter"].(int)
	return v, ok
}

func New(messageKey string) *I18nError {
	return &I18nError{
		MessageKey:  messageKey,
		MessageArgs: make(map[string]any),
		HTTPCode:    http.StatusInternalServerError,
		Code:        CodeInternal,
	}
}

func HTTPStatusCode(code Code) int {
	switch code {
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeInvalid, CodeValidationFailed, CodeMalformedJSON, CodeInvalidCode, CodeCodeExpired:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenInvalid:
		return http.StatusUnauthorized
	case CodeDuplicateEntry:
		return http.StatusConflict
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}

	var i18nErr *I18nError
	if errors.As(err, &i18nErr) {
		return i18nErr.Code == code
	}

	return false
}

func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

func IsDuplicateEntry(err error) bool {
	return IsCode(err, CodeDuplicateEntry)
}

// Client Errors (4xx)

func NewValidationFieldFailed(field string) *I18nError {
	return &I18nError{
		MessageKey:  "validation_failed_field",
		MessageArgs: map[string]any{"Field": field},
		Code:        CodeValidationFailed,
		HTTPCode:    http.StatusBadRequest,
	}
}

func NewMalformedJSON() *I18nError {
	return &I18nError{
		MessageKey: "malformed_json",
		Code:       CodeMalformedJSON,
		HTTPCode:   http.StatusBadRequest,
	}
}

func NewUnauthorized() *I18nError {
	return &I18nError{
		MessageKey: "unauthorized",
		Code:       CodeUnauthorized,
		HTTPCode:   http.StatusUnauthorized,
	}
}

func NewTokenInvalid() *I18nError {
	return &I18nError{
		MessageKey: "token_invalid",
		Code:       CodeTokenInvalid,
		HTTPCode:   http.StatusUnauthorized,
	}
}

func NewNotFound() *I18nError {
	return &I18nError{
		MessageKey: "not_found",
		Code:       CodeNotFound,
		HTTPCode:   http.StatusNotFound,
	}
}

func NewUserNotFound() *I18nError {
	return &I18nError{
		MessageKey: "user_not_found",
		Code:       CodeUserNotFound,
		HTTPCode:   http.StatusNotFound,
	}
}

func NewMethodNotAllowed() *I18nError {
	return &I18nError{
		MessageKey: "method_not_allowed",
		Code:       CodeMethodNotAllowed,
		HTTPCode:   http.StatusMethodNotAllowed,
	}
}

func NewDuplicateEntry() *I18nError {
	return &I18nError{
		MessageKey: "duplicate_entry",
		Code:       CodeDuplicateEntry,
		HTTPCode:   http.StatusConflict,
	}
}

func NewRateLimitExceeded() *I18nError {
	return &I18nError{
		MessageKey: "rate_limit_exceeded",
		Code:       CodeRateLimitExceeded,
		HTTPCode:   http.StatusTooManyRequests,
	}
}

func NewRateLimitExceededWithRetry(retryAfter int) *I18nError {
	return &I18nError{
		MessageKey:  "rate_limit_exceeded_with_time",
		MessageArgs: map[string]any{"RetryAfter": retryAfter},
		Code:        CodeRateLimitExceeded,
		HTTPCode:    http.StatusTooManyRequests,
	}
}

// Verification Errors
func NewInvalidCode() *I18nError {
	return &I18nError{
		MessageKey: "invalid_code",
		Code:       CodeInvalidCode,
		HTTPCode:   http.StatusBadRequest,
	}
}

func NewCodeExpired() *I18nError {
	return &I18nError{
		MessageKey: "code_expired",
		Code:       CodeCodeExpired,
		HTTPCode:   http.StatusBadRequest,
	}
}

// Server Errors (5xx)
func NewInternalError() *I18nError {
	return &I18nError{
		MessageKey: "internal_error",
		Code:       CodeInternal,
		HTTPCode:   http.StatusInternalServerError,
	}
}

