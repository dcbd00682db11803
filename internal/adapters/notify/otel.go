// Package notify holds the transports that hand freshly issued verification
// codes to the notification service.
package notify

import (
	"go.opentelemetry.io/otel"

	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

var (
	tracer = otel.Tracer("codeauth/internal/adapters/notify")
	logger = logging.Named("codeauth/internal/adapters/notify")
)
