package verification

import (
	"errors"
	"fmt"
	"time"

	"gitlab.com/codeauth/codeauth-backend/pkg/randcode"
)

// Issuer mints fresh, unused codes. It does not persist them.
type Issuer struct {
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

type IssuerArgs struct {
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	// Generate defaults to a crypto/rand backed six digit generator.
	Generate func() (string, error)
}

func NewIssuer(args IssuerArgs) (*Issuer, error) {
	if args.TTL <= 0 {
		return nil, errors.New("code ttl must be positive")
	}
	if args.Now == nil {
		args.Now = time.Now
	}
	if args.Generate == nil {
		args.Generate = func() (string, error) { return randcode.GenerateNumericCode(CodeLength) }
	}

	return &Issuer{
		ttl:      args.TTL,
		now:      args.Now,
		generate: args.Generate,
	}, nil
}

func (i *Issuer) Issue(email string) (*Code, error) {
	value, err := i.generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	if len(value) != CodeLength {
		return nil, fmt.Errorf("generated code has length %d, want %d", len(value), CodeLength)
	}

	now := i.now().UTC()
	return &Code{
		id:        NewID(),
		email:     email,
		code:      value,
		expiresAt: now.Add(i.ttl),
		used:      false,
		createdAt: now,
	}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
