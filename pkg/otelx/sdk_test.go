package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupSDK_WithoutEndpointOnlyInstallsPropagator(t *testing.T) {
	ctx := context.Background()
	prevProvider := otel.GetTracerProvider()

	shutdown, err := SetupSDK(ctx, "codeauth-test", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
	assert.Equal(t, prevProvider, otel.GetTracerProvider())
	assert.NoError(t, shutdown(ctx))
}
