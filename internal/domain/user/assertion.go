package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Assertion is a fluent helper for checking a user's state in tests.
type Assertion struct {
	u *User
}

func NewAssertion(u *User) *Assertion {
	return &Assertion{u: u}
}

func (a *Assertion) AssertID(t *testing.T, id ID) *Assertion {
	t.Helper()
	assert.Equal(t, id, a.u.ID(), "user id mismatch")
	return a
}

func (a *Assertion) AssertEmail(t *testing.T, email string) *Assertion {
	t.Helper()
	assert.Equal(t, email, a.u.Email(), "user email mismatch")
	return a
}

func (a *Assertion) AssertVerified(t *testing.T, verified bool) *Assertion {
	t.Helper()
	assert.Equal(t, verified, a.u.IsVerified(), "user verified flag mismatch")
	return a
}

func (a *Assertion) AssertCreatedWithin(t *testing.T, at time.Time, delta time.Duration) *Assertion {
	t.Helper()
	assert.WithinDuration(t, at, a.u.CreatedAt(), delta, "user created_at mismatch")
	return a
}
