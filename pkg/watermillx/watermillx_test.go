package watermillx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/event"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

type streamlessEvent struct {
	event.Header
}

func (e *streamlessEvent) GetStreamName() string { return "" }

func TestMessageTopic(t *testing.T) {
	topic, err := MessageTopic(verification.NewCodeIssued(context.Background(), "alice@example.com", "123456"))
	require.NoError(t, err)
	assert.Equal(t, verification.EventStreamName, topic)

	_, err = MessageTopic(&streamlessEvent{})
	assert.Error(t, err)
}

func TestEventBus_PublishesToStreamTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer pubsub.Close()

	bus, err := NewEventBus(pubsub, watermill.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, verification.NewCodeIssued(ctx, "alice@example.com", "123456")))

	messages, err := pubsub.Subscribe(ctx, verification.EventStreamName)
	require.NoError(t, err)

	var msg *message.Message
	select {
	case msg = <-messages:
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message on the verification stream")
	}

	var got verification.CodeIssued
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "123456", got.Code)
	assert.NotEmpty(t, got.ID)
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	adapter := NewSlogAdapter(logger).With(watermill.LogFields{"topic": "events_verification"})
	adapter.Debug("hidden", nil)
	adapter.Info("subscribed", watermill.LogFields{"handler": "notify"})
	adapter.Error("handler failed", errors.New("boom"), nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "subscribed")
	assert.Contains(t, out, "handler=notify")
	assert.Contains(t, out, "topic=events_verification")
	assert.Contains(t, out, "error=boom")
}
