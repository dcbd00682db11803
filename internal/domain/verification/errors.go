package verification

import (
	"errors"

	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
)

var (
	ErrInvalidCode = errorx.NewInvalidCode()
	ErrCodeExpired = errorx.NewCodeExpired()
	ErrAlreadyUsed = errors.New("verification code already used")
)
