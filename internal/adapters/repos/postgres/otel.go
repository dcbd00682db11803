package postgres

import (
	"go.opentelemetry.io/otel"

	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
)

var (
	tracer = otel.Tracer("codeauth/internal/adapters/repos/postgres")
	logger = logging.Named("codeauth/internal/adapters/repos/postgres")
)
