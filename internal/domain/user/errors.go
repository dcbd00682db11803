package user

import "gitlab.com/codeauth/codeauth-backend/pkg/errorx"

var (
	ErrInvalidEmail = errorx.NewValidationFieldFailed("email")
	ErrNotFound     = errorx.NewUserNotFound()
)
