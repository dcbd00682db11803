package authapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/adapters/repos/memory"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	t0         = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type published struct {
	Email string
	Code  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (n *recordingNotifier) Publish(ctx context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, published{Email: email, Code: code})
	return nil
}

func (n *recordingNotifier) Sent() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.sent...)
}

type suite struct {
	app      *App
	clock    *clock
	db       *memory.DB
	users    *memory.UserRepo
	codes    *memory.VerificationCodeRepo
	notifier *recordingNotifier
}

type suiteBuilder struct {
	codeTTL     time.Duration
	window      time.Duration
	tokenTTL    time.Duration
	mode        env.Mode
	codes       []string
	notifierErr error
}

func newSuiteBuilder() *suiteBuilder {
	return &suiteBuilder{
		codeTTL:  10 * time.Minute,
		window:   60 * time.Second,
		tokenTTL: 60 * time.Minute,
		mode:     env.Test,
	}
}

func (b *suiteBuilder) WithWindow(d time.Duration) *suiteBuilder {
	b.window = d
	return b
}

func (b *suiteBuilder) WithCodeTTL(d time.Duration) *suiteBuilder {
	b.codeTTL = d
	return b
}

func (b *suiteBuilder) WithMode(m env.Mode) *suiteBuilder {
	b.mode = m
	return b
}

// WithCodes makes the issuer hand out the given values in order.
func (b *suiteBuilder) WithCodes(codes ...string) *suiteBuilder {
	b.codes = codes
	return b
}

func (b *suiteBuilder) WithNotifierError(err error) *suiteBuilder {
	b.notifierErr = err
	return b
}

func (b *suiteBuilder) Build(t *testing.T) *suite {
	t.Helper()

	clk := &clock{now: t0}
	db := memory.NewDB()
	s := &suite{
		clock:    clk,
		db:       db,
		users:    memory.NewUserRepo(db),
		codes:    memory.NewVerificationCodeRepo(db),
		notifier: &recordingNotifier{err: b.notifierErr},
	}

	var generate func() (string, error)
	if len(b.codes) > 0 {
		var (
			mu   sync.Mutex
			next int
		)
		generate = func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if next >= len(b.codes) {
				return "", errors.New("no more test codes")
			}
			next++
			return b.codes[next-1], nil
		}
	}

	app, err := NewApp(Args{
		Mode:            b.mode,
		Now:             clk.Now,
		GenerateCode:    generate,
		Users:           s.users,
		Codes:           s.codes,
		Tx:              memory.NewTransactor(db),
		Notifier:        s.notifier,
		CodeTTL:         b.codeTTL,
		RateLimitWindow: b.window,
		TokenTTL:        b.tokenTTL,
		SigningSecret:   testSecret,
	})
	require.NoError(t, err)
	s.app = app
	return s
}

func (s *suite) MustRegister(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := s.app.Register(context.Background(), Register{Email: email})
	require.NoError(t, err)
	return u
}

func (s *suite) LatestCode(t *testing.T, email string) *verification.Code {
	t.Helper()
	c, err := s.codes.GetLatestVerificationCode(context.Background(), email)
	require.NoError(t, err)
	return c
}

func (s *suite) SeedUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.NewUser(email, env.Test, s.clock.Now())
	require.NoError(t, err)
	require.NoError(t, s.users.SaveUser(context.Background(), u))
	return u
}
