package verification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const CodeLength = 6

type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Code is a single-use verification code issued for one registration attempt.
// The only mutation it ever sees is used going from false to true.
type Code struct {
	id        ID
	email     string
	code      string
	expiresAt time.Time
	used      bool
	createdAt time.Time
}

type RehydrateArgs struct {
	ID        ID
	Email     string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func Rehydrate(args RehydrateArgs) *Code {
	return &Code{
		id:        args.ID,
		email:     args.Email,
		code:      args.Code,
		expiresAt: args.ExpiresAt,
		used:      args.Used,
		createdAt: args.CreatedAt,
	}
}

// IsExpired reports whether the code can no longer be accepted at now.
// A code is acceptable only while now is strictly before expiresAt.
func (c *Code) IsExpired(now time.Time) bool {
	if c == nil || c.expiresAt.IsZero() {
		return true
	}
	return !now.Before(c.expiresAt)
}

// MarkUsed consumes the code. Consuming an already used code fails.
func (c *Code) MarkUsed() error {
	if c == nil {
		return fmt.Errorf("verification code is nil")
	}
	if c.used {
		return ErrAlreadyUsed
	}
	c.used = true
	return nil
}

// Matches reports whether the code was issued to email with the given value.
func (c *Code) Matches(email, code string) bool {
	return c != nil && c.email == email && c.code == code
}

func (c *Code) ID() ID {
	if c == nil {
		return ID{}
	}
	return c.id
}

func (c *Code) Email() string {
	if c == nil {
		return ""
	}
	return c.email
}

func (c *Code) Code() string {
	if c == nil {
		return ""
	}
	return c.code
}

func (c *Code) ExpiresAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.expiresAt
}

func (c *Code) IsUsed() bool {
	if c == nil {
		return false
	}
	return c.used
}

func (c *Code) CreatedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.createdAt
}
