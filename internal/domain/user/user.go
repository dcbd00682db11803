package user

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ARUMANDESU/validation"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/validationx"
)

type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid user id: %w", err)
	}
	return ID(id), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// User is an identity keyed by email. It is created unverified on first
// registration and becomes verified once; it never goes back.
type User struct {
	id        ID
	email     string
	verified  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates an unverified user. In dev and prod modes the email domain
// must end in a real public suffix.
func NewUser(email string, mode env.Mode, now time.Time) (*User, error) {
	if err := ValidateEmail(email, mode); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &User{
		id:        NewID(),
		email:     email,
		verified:  false,
		createdAt: now,
		updatedAt: now,
	}, nil
}

type RehydrateArgs struct {
	ID        ID
	Email     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Rehydrate(args RehydrateArgs) *User {
	return &User{
		id:        args.ID,
		email:     args.Email,
		verified:  args.Verified,
		createdAt: args.CreatedAt,
		updatedAt: args.UpdatedAt,
	}
}

// MarkVerified flips the user to verified. It reports whether anything changed.
func (u *User) MarkVerified(now time.Time) (bool, error) {
	if u == nil {
		return false, errors.New("user is nil")
	}
	if u.verified {
		return false, nil
	}

	u.verified = true
	u.updatedAt = now.UTC()
	return true, nil
}

func (u *User) ID() ID {
	if u == nil {
		return ID{}
	}
	return u.id
}

func (u *User) Email() string {
	if u == nil {
		return ""
	}
	return u.email
}

func (u *User) IsVerified() bool {
	if u == nil {
		return false
	}
	return u.verified
}

func (u *User) CreatedAt() time.Time {
	if u == nil {
		return time.Time{}
	}
	return u.createdAt
}

func (u *User) UpdatedAt() time.Time {
	if u == nil {
		return time.Time{}
	}
	return u.updatedAt
}

func ValidateEmail(email string, mode env.Mode) error {
	if err := validation.Validate(email, validationx.EmailRules...); err != nil {
		return ErrInvalidEmail.WithCause(err)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail.WithCause(err)
	}
	if (mode == env.Dev || mode == env.Prod) && !hasRealTLD(email) {
		return ErrInvalidEmail.WithCause(fmt.Errorf("email must have a real top-level domain in %s mode", mode))
	}
	return nil
}

func hasRealTLD(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])

	// a suffix equal to the whole domain means nothing is registrable
	suffix, icann := publicsuffix.PublicSuffix(domain)
	return icann && suffix != domain
}
