package authapp

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
)

func newTestTokenIssuer(t *testing.T, clk *clock) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(TokenIssuerArgs{
		Secret: testSecret,
		TTL:    time.Hour,
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return ti
}

func TestTokenIssuer_GenerateAndVerify(t *testing.T) {
	clk := &clock{now: t0}
	ti := newTestTokenIssuer(t, clk)
	id := user.NewID()

	token, err := ti.Generate(id, "alice@example.com")
	require.NoError(t, err)

	NewJWTTokenAssertion(t, token, testSecret).
		AssertAlg("HS256").
		AssertSub(id.String()).
		AssertEmail("alice@example.com").
		AssertIAT(t0).
		AssertExp(t0.Add(time.Hour))

	got, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenIssuer_ExpiresAtExp(t *testing.T) {
	clk := &clock{now: t0}
	ti := newTestTokenIssuer(t, clk)

	token, err := ti.Generate(user.NewID(), "alice@example.com")
	require.NoError(t, err)

	clk.Advance(time.Hour - time.Second)
	_, err = ti.Verify(token)
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsUniformly(t *testing.T) {
	clk := &clock{now: t0}
	ti := newTestTokenIssuer(t, clk)

	valid, err := ti.Generate(user.NewID(), "alice@example.com")
	require.NoError(t, err)
	other, err := ti.Generate(user.NewID(), "mallory@example.com")
	require.NoError(t, err)
	validParts, otherParts := strings.Split(valid, "."), strings.Split(other, ".")
	swappedPayload := validParts[0] + "." + otherParts[1] + "." + validParts[2]

	claims := func(sub string, exp *jwt.NumericDate) Claims {
		return Claims{
			Email: "alice@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				IssuedAt:  jwt.NewNumericDate(t0),
				ExpiresAt: exp,
			},
		}
	}
	sign := func(method jwt.SigningMethod, c Claims, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	inAnHour := jwt.NewNumericDate(t0.Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "swapped payload", token: swappedPayload},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, claims(user.NewID().String(), inAnHour), []byte("another-secret-another-secret-xx"))},
		{name: "other hmac alg", token: sign(jwt.SigningMethodHS512, claims(user.NewID().String(), inAnHour), testSecret)},
		{name: "alg none", token: sign(jwt.SigningMethodNone, claims(user.NewID().String(), inAnHour), jwt.UnsafeAllowNoneSignatureType)},
		{name: "missing exp", token: sign(jwt.SigningMethodHS256, claims(user.NewID().String(), nil), testSecret)},
		{name: "subject not a user id", token: sign(jwt.SigningMethodHS256, claims("alice", inAnHour), testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ti.Verify(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestNewTokenIssuer_RejectsBadArgs(t *testing.T) {
	_, err := NewTokenIssuer(TokenIssuerArgs{TTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenIssuer(TokenIssuerArgs{Secret: testSecret})
	assert.Error(t, err)
}
