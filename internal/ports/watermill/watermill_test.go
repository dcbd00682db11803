package watermill

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/watermillx"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []verification.CodeIssued
}

func (h *recordingHandler) HandleCodeIssued(ctx context.Context, e *verification.CodeIssued) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *e)
	return nil
}

func (h *recordingHandler) Events() []verification.CodeIssued {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]verification.CodeIssued(nil), h.events...)
}

func TestPort_DeliversPublishedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)
	defer pubsub.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	require.NoError(t, err)

	port, err := NewPort(router, func(string) (message.Subscriber, error) { return pubsub, nil }, logger)
	require.NoError(t, err)

	handler := &recordingHandler{}
	require.NoError(t, port.Register(handler))

	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	bus, err := watermillx.NewEventBus(pubsub, logger)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, verification.NewCodeIssued(ctx, "alice@example.com", "123456")))

	require.Eventually(t, func() bool { return len(handler.Events()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := handler.Events()[0]
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "123456", got.Code)
}
