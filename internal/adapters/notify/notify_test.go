package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/env"
	"gitlab.com/codeauth/codeauth-backend/pkg/watermillx"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type blockingPublisher struct {
	mu     sync.Mutex
	calls  int
	err    error
	ctxErr error
	delay  time.Duration
}

func (p *blockingPublisher) Publish(ctx context.Context, email, code string) error {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.ctxErr = ctx.Err()
	return p.err
}

func decodeCodeIssued(t *testing.T, payload []byte) verification.CodeIssued {
	t.Helper()
	var evt verification.CodeIssued
	require.NoError(t, json.Unmarshal(payload, &evt))
	require.NoError(t, evt.Validate())
	return evt
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, nil)

	require.NoError(t, p.Publish(context.Background(), "alice@example.com", "123456"))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, []byte("alice@example.com"), msg.Key)
	evt := decodeCodeIssued(t, msg.Value)
	assert.Equal(t, "alice@example.com", evt.Email)
	assert.Equal(t, "123456", evt.Code)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, evt.ID.String(), string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	boom := errors.New("leader not available")
	p := NewKafkaPublisher(&fakeWriter{err: boom}, nil)

	err := p.Publish(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, boom)
}

func TestNewKafkaWriter_DefaultsTopic(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "")
	assert.Equal(t, DefaultKafkaTopic, w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

func TestOutboxPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	defer pubsub.Close()
	bus, err := watermillx.NewEventBus(pubsub, watermill.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, NewOutboxPublisher(bus, nil).Publish(ctx, "alice@example.com", "123456"))

	messages, err := pubsub.Subscribe(ctx, verification.EventStreamName)
	require.NoError(t, err)
	select {
	case msg := <-messages:
		msg.Ack()
		evt := decodeCodeIssued(t, msg.Payload)
		assert.Equal(t, "alice@example.com", evt.Email)
		assert.Equal(t, "123456", evt.Code)
	case <-ctx.Done():
		t.Fatal("no message on the verification stream")
	}
}

func TestSNSPublisher_Publish(t *testing.T) {
	client := &fakeSNS{}
	p, err := NewSNSPublisher(client, "arn:aws:sns:eu-central-1:000000000000:verification-codes", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "alice@example.com", "123456"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:eu-central-1:000000000000:verification-codes", aws.ToString(in.TopicArn))
	assert.Equal(t, "alice@example.com", aws.ToString(in.MessageAttributes["email"].StringValue))
	evt := decodeCodeIssued(t, []byte(aws.ToString(in.Message)))
	assert.Equal(t, "123456", evt.Code)
}

func TestSNSPublisher_Errors(t *testing.T) {
	_, err := NewSNSPublisher(nil, "arn", nil)
	assert.Error(t, err)
	_, err = NewSNSPublisher(&fakeSNS{}, "", nil)
	assert.Error(t, err)

	boom := errors.New("throttled")
	p, err := NewSNSPublisher(&fakeSNS{err: boom}, "arn", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Publish(context.Background(), "alice@example.com", "123456"), boom)
}

func TestLogPublisher(t *testing.T) {
	tests := []struct {
		mode     env.Mode
		wantCode bool
	}{
		{mode: env.Local, wantCode: true},
		{mode: env.Prod, wantCode: false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			var buf bytes.Buffer
			p := NewLogPublisher(tt.mode, slog.New(slog.NewTextHandler(&buf, nil)))

			require.NoError(t, p.Publish(context.Background(), "alice@example.com", "123456"))

			out := buf.String()
			assert.Contains(t, out, "verification code issued")
			if tt.wantCode {
				assert.Contains(t, out, "code=123456")
				assert.Contains(t, out, "alice@example.com")
			} else {
				assert.NotContains(t, out, "123456")
				assert.NotContains(t, out, "alice@example.com")
			}
		})
	}
}

func TestAsync_ReturnsBeforePublishCompletes(t *testing.T) {
	next := &blockingPublisher{delay: 50 * time.Millisecond}
	a := NewAsync(next, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, a.Publish(ctx, "alice@example.com", "123456"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	cancel()

	a.Wait()
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, next.ctxErr, "request cancellation must not cancel the publish")
}

func TestAsync_SwallowsAndLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	next := &blockingPublisher{err: errors.New("broker down")}
	a := NewAsync(next, time.Second, slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, a.Publish(context.Background(), "alice@example.com", "123456"))
	a.Wait()

	assert.Contains(t, buf.String(), "failed to publish verification code")
	assert.Contains(t, buf.String(), "broker down")
	assert.NotContains(t, buf.String(), "123456")
}

func TestAsync_AppliesTimeout(t *testing.T) {
	next := &blockingPublisher{delay: time.Second}
	a := NewAsync(next, 10*time.Millisecond, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	require.NoError(t, a.Publish(context.Background(), "alice@example.com", "123456"))
	a.Wait()

	assert.ErrorIs(t, next.ctxErr, context.DeadlineExceeded)
}
