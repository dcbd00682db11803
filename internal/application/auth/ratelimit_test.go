package authapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos/memory"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
)

type failingCodeGetter struct{ err error }

func (f failingCodeGetter) GetLatestVerificationCode(ctx context.Context, email string) (*verification.Code, error) {
	return nil, f.err
}

func TestRateGuard_Check(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		wantRetry  int
		wantDenied bool
	}{
		{name: "just issued", elapsed: 0, wantRetry: 60, wantDenied: true},
		{name: "fraction rounds up", elapsed: 500 * time.Millisecond, wantRetry: 60, wantDenied: true},
		{name: "half way", elapsed: 30 * time.Second, wantRetry: 30, wantDenied: true},
		{name: "last millisecond", elapsed: 59*time.Second + 999*time.Millisecond, wantRetry: 1, wantDenied: true},
		{name: "window elapsed", elapsed: 60 * time.Second},
		{name: "long after", elapsed: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			codes := memory.NewVerificationCodeRepo(memory.NewDB())
			require.NoError(t, codes.SaveVerificationCode(ctx, verification.Rehydrate(verification.RehydrateArgs{
				ID:        verification.NewID(),
				Email:     "alice@example.com",
				Code:      "123456",
				ExpiresAt: t0.Add(10 * time.Minute),
				Used:      true,
				CreatedAt: t0,
			})))

			guard, err := NewRateGuard(RateGuardArgs{
				Codes:  codes,
				Window: 60 * time.Second,
				Now:    func() time.Time { return t0.Add(tt.elapsed) },
			})
			require.NoError(t, err)

			err = guard.Check(ctx, "alice@example.com")
			if !tt.wantDenied {
				assert.NoError(t, err)
				return
			}

			require.True(t, errorx.IsCode(err, errorx.CodeRateLimitExceeded))
			var i18nErr *errorx.I18nError
			require.ErrorAs(t, err, &i18nErr)
			retry, ok := i18nErr.RetryAfter()
			require.True(t, ok)
			assert.Equal(t, tt.wantRetry, retry)
		})
	}
}

func TestRateGuard_AllowsUnknownEmail(t *testing.T) {
	guard, err := NewRateGuard(RateGuardArgs{
		Codes:  memory.NewVerificationCodeRepo(memory.NewDB()),
		Window: time.Minute,
	})
	require.NoError(t, err)

	assert.NoError(t, guard.Check(context.Background(), "new@example.com"))
}

func TestRateGuard_ZeroWindowNeverBlocks(t *testing.T) {
	ctx := context.Background()
	codes := memory.NewVerificationCodeRepo(memory.NewDB())
	require.NoError(t, codes.SaveVerificationCode(ctx, verification.Rehydrate(verification.RehydrateArgs{
		ID: verification.NewID(), Email: "alice@example.com", Code: "123456", CreatedAt: t0,
	})))

	guard, err := NewRateGuard(RateGuardArgs{Codes: codes, Now: func() time.Time { return t0 }})
	require.NoError(t, err)

	assert.NoError(t, guard.Check(ctx, "alice@example.com"))
}

func TestRateGuard_PropagatesStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	guard, err := NewRateGuard(RateGuardArgs{Codes: failingCodeGetter{err: boom}, Window: time.Minute})
	require.NoError(t, err)

	err = guard.Check(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errorx.IsCode(err, errorx.CodeRateLimitExceeded))
}

func TestNewRateGuard_RejectsBadArgs(t *testing.T) {
	_, err := NewRateGuard(RateGuardArgs{Window: time.Minute})
	assert.Error(t, err)

	_, err = NewRateGuard(RateGuardArgs{Codes: failingCodeGetter{}, Window: -time.Second})
	assert.Error(t, err)
}
