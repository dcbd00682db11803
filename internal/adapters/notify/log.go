package notify

import (
	"context"
	"log/slog"

	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

// LogPublisher only records that a code was issued. It is the default
// transport for local runs without a broker. The code itself is logged in
// non-prod modes only.
type LogPublisher struct {
	logger *slog.Logger
	mode   env.Mode
}

func NewLogPublisher(mode env.Mode, l *slog.Logger) *LogPublisher {
	if l == nil {
		l = logger
	}
	return &LogPublisher{logger: l, mode: mode}
}

func (p *LogPublisher) Publish(ctx context.Context, email, code string) error {
	if !p.mode.IsNonProd() {
		p.logger.InfoContext(ctx, "verification code issued", slog.String("email", logging.RedactEmail(email)))
		return nil
	}

	p.logger.InfoContext(ctx, "verification code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
