package validationx

import (
	"strings"
	"testing"

	"github.com/ARUMANDESU/validation"
	"github.com/stretchr/testify/assert"
)

func TestEmailRules(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.example.org",
		"a_b-c@domain.io",
	}
	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@localhost",
		"user@exa mple.com",
		strings.Repeat("a", 250) + "@example.com",
	}

	for _, email := range valid {
		assert.NoError(t, validation.Validate(email, EmailRules...), email)
		assert.True(t, IsEmail(email), email)
	}
	for _, email := range invalid {
		assert.Error(t, validation.Validate(email, EmailRules...), email)
	}
}

func TestVerificationCodeRules(t *testing.T) {
	assert.NoError(t, validation.Validate("012345", VerificationCodeRules...))

	for _, code := range []string{"", "12345", "1234567", "12a456", "12 456"} {
		assert.Error(t, validation.Validate(code, VerificationCodeRules...), code)
	}
}

type req struct {
	Email string
	Code  string
}

func TestAssertValidationErrors(t *testing.T) {
	r := req{Email: "bad", Code: "1"}
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, EmailRules...),
		validation.Field(&r.Code, VerificationCodeRules...),
	)
	AssertValidationErrors(t, err, "Email", "Code")
}
