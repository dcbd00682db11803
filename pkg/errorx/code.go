package errorx

type Code string

func (c Code) String() string {
	return string(c)
}

const (
	// Client errors (4xx)
	CodeInvalid           Code = "INVALID"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeMalformedJSON     Code = "MALFORMED_JSON"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeTokenInvalid      Code = "TOKEN_INVALID"
	CodeNotFound          Code = "NOT_FOUND"
	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodeMethodNotAllowed  Code = "METHOD_NOT_ALLOWED"
	CodeDuplicateEntry    Code = "DUPLICATE_ENTRY"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"

	// Verification codes
	CodeInvalidCode Code = "INVALID_CODE"
	CodeCodeExpired Code = "CODE_EXPIRED"

	// Server errors (5xx)
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)
