package watermill

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/watermillx"
)

const CodeIssuedHandlerName = "NotificationOnCodeIssued"

type CodeIssuedHandler interface {
	HandleCodeIssued(ctx context.Context, e *verification.CodeIssued) error
}

type Port struct {
	eventProcessor *cqrs.EventProcessor
}

func NewPort(router *message.Router, subscribe watermillx.SubscriberConstructor, wmlogger watermill.LoggerAdapter) (*Port, error) {
	eventProcessor, err := watermillx.NewEventProcessor(router, subscribe, wmlogger)
	if err != nil {
		return nil, err
	}

	return &Port{eventProcessor: eventProcessor}, nil
}

// Register adds the event handlers to the router. The router must not be
// running yet.
func (p *Port) Register(handler CodeIssuedHandler) error {
	err := p.eventProcessor.AddHandlers(
		cqrs.NewEventHandler(CodeIssuedHandlerName, handler.HandleCodeIssued),
	)
	if err != nil {
		return fmt.Errorf("failed to add event handlers: %w", err)
	}

	return nil
}
