package repos

import "gitlab.com/codeauth/codeauth-backend/pkg/errorx"

// Errors shared by every store implementation.
var (
	ErrNotFound       = errorx.NewNotFound()
	ErrDuplicateEmail = errorx.NewDuplicateEntry().WithArgs(map[string]any{"Field": "email"})
)
