package authapp

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
)

var ErrTokenInvalid = errorx.NewTokenInvalid()

// Claims are the session token claims: sub is the user id, iat and exp are
// unix seconds.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	logger        *slog.Logger
	secret        []byte
	ttl           time.Duration
	now           func() time.Time
	signingMethod *jwt.SigningMethodHMAC
}

type TokenIssuerArgs struct {
	Logger *slog.Logger
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenIssuer(args TokenIssuerArgs) (*TokenIssuer, error) {
	if len(args.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if args.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Now == nil {
		args.Now = time.Now
	}

	return &TokenIssuer{
		logger:        args.Logger,
		secret:        args.Secret,
		ttl:           args.TTL,
		now:           args.Now,
		signingMethod: jwt.SigningMethodHS256,
	}, nil
}

func (ti *TokenIssuer) Generate(userID user.ID, email string) (string, error) {
	now := ti.now()
	token := jwt.NewWithClaims(ti.signingMethod, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", errorx.Wrap(err, "authapp.TokenIssuer.Generate")
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of token and returns its
// subject. A token is expired once now reaches exp. Every failure is reported
// as ErrTokenInvalid.
func (ti *TokenIssuer) Verify(token string) (user.ID, error) {
	claims, err := ti.parse(token)
	if err != nil {
		ti.logger.Debug("rejected session token", slog.String("reason", err.Error()))
		return user.ID{}, ErrTokenInvalid.WithCause(err)
	}

	id, err := user.ParseID(claims.Subject)
	if err != nil {
		return user.ID{}, ErrTokenInvalid.WithCause(err)
	}
	return id, nil
}

func (ti *TokenIssuer) parse(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{ti.signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ti.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

type JWTTokenAssertion struct {
	token    string
	jwttoken *jwt.Token
	claims   jwt.MapClaims
	t        *testing.T
}

func NewJWTTokenAssertion(t *testing.T, token string, secretkey []byte) *JWTTokenAssertion {
	t.Helper()

	jwttoken, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return secretkey, nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)

	claims, ok := jwttoken.Claims.(jwt.MapClaims)
	require.True(t, ok, "jwt token claims must be type jwt.MapClaims")

	return &JWTTokenAssertion{
		t:        t,
		token:    token,
		jwttoken: jwttoken,
		claims:   claims,
	}
}

func (a *JWTTokenAssertion) AssertAlg(expected string) *JWTTokenAssertion {
	a.t.Helper()
	assert.Equal(a.t, expected, a.jwttoken.Method.Alg())
	return a
}

func (a *JWTTokenAssertion) AssertSub(expected string) *JWTTokenAssertion {
	a.t.Helper()
	assert.Equal(a.t, expected, a.claims["sub"])
	return a
}

func (a *JWTTokenAssertion) AssertEmail(expected string) *JWTTokenAssertion {
	a.t.Helper()
	assert.Equal(a.t, expected, a.claims["email"])
	return a
}

func (a *JWTTokenAssertion) AssertExp(expected time.Time) *JWTTokenAssertion {
	a.t.Helper()
	exp, ok := a.claims["exp"].(float64)
	require.True(a.t, ok, "exp claim must be of type float64, got %T", a.claims["exp"])
	assert.WithinDuration(a.t, expected, time.Unix(int64(exp), 0), time.Second, "exp claim should be within 1 second of expected time")
	return a
}

func (a *JWTTokenAssertion) AssertIAT(expected time.Time) *JWTTokenAssertion {
	a.t.Helper()
	iat, ok := a.claims["iat"].(float64)
	require.True(a.t, ok, "iat claim must be of type float64, got %T", a.claims["iat"])
	assert.WithinDuration(a.t, expected, time.Unix(int64(iat), 0), time.Second, "iat claim should be within 1 second of expected time")
	return a
}
