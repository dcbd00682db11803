package validationx

import (
	"errors"
	"regexp"
	"testing"

	"github.com/ARUMANDESU/validation"
	"github.com/ARUMANDESU/validation/is"
)

const (
	MaxEmailLength         = 254
	VerificationCodeLength = 6
)

var ErrInvalidEmailFormat = validation.NewError("validation_is_email", "must be a valid email address")

var emailRx = regexp.MustCompile(
	`^[a-zA-Z0-9._%+\-]+@` + // local part
		`(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)+` + // labels
		`[A-Za-z]{2,63}$`) // TLD

var (
	EmailRules = []validation.Rule{
		validation.Required,
		validation.Length(3, MaxEmailLength),
		is.EmailFormat,
		validation.Match(emailRx).ErrorObject(ErrInvalidEmailFormat),
	}

	VerificationCodeRules = []validation.Rule{
		validation.Required,
		validation.Length(VerificationCodeLength, VerificationCodeLength),
		is.Digit,
	}
)

// IsEmail reports whether s passes the email shape check used by EmailRules.
func IsEmail(s string) bool {
	return validation.Validate(s, EmailRules...) == nil
}

// AssertValidationErrors fails the test unless err is a validation.Errors map
// with errors for exactly the given fields.
func AssertValidationErrors(t *testing.T, err error, fields ...string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation errors for %v, got nil", fields)
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation.Errors, got %T: %v", err, err)
	}
	if len(verrs) != len(fields) {
		t.Fatalf("expected errors for fields %v, got %v", fields, verrs)
	}
	for _, field := range fields {
		if _, ok := verrs[field]; !ok {
			t.Errorf("expected validation error for field %q, got %v", field, verrs)
		}
	}
}
