package verification

import (
	"context"

	"github.com/ARUMANDESU/validation"
	"github.com/ARUMANDESU/validation/is"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/event"
)

const EventStreamName = "events_verification"

// CodeIssued is the message handed to the notification channel after a
// registration commits.
type CodeIssued struct {
	event.Header `json:"header"`
	event.Otel
	Email string `json:"email"`
	Code  string `json:"code"`
}

func NewCodeIssued(ctx context.Context, email, code string) *CodeIssued {
	e := &CodeIssued{
		Header: event.NewEventHeader(),
		Email:  email,
		Code:   code,
	}
	e.Propagate(ctx)
	return e
}

func (e *CodeIssued) GetStreamName() string {
	return EventStreamName
}

func (e *CodeIssued) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Email, validation.Required, is.EmailFormat),
		validation.Field(&e.Code, validation.Required, validation.Length(CodeLength, CodeLength), is.Digit),
	)
}
