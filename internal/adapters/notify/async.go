package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

const DefaultPublishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, email, code string) error
}

// Async hands each publish to a background goroutine and returns at once.
// Failures are only logged. Wait blocks until in-flight publishes finish.
type Async struct {
	next    Publisher
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Publisher, timeout time.Duration, l *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if l == nil {
		l = logger
	}
	return &Async{next: next, timeout: timeout, logger: l}
}

func (a *Async) Publish(ctx context.Context, email, code string) error {
	// detached from the request so a finished response does not cancel it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()

		if err := a.next.Publish(ctx, email, code); err != nil {
			a.logger.WarnContext(ctx, "failed to publish verification code",
				slog.String("email", logging.RedactEmail(email)),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

func (a *Async) Wait() {
	a.wg.Wait()
}
