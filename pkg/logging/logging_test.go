package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/codeauth/codeauth-backend/pkg/env"
)

func TestTee_FansOutByLevel(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	debug := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(Tee(debug, info)).With("component", "test")
	logger.Debug("only debug")
	logger.Info("both")

	assert.Contains(t, debugBuf.String(), "only debug")
	assert.Contains(t, debugBuf.String(), "both")
	assert.NotContains(t, infoBuf.String(), "only debug")
	assert.Contains(t, infoBuf.String(), "both")
	assert.Contains(t, infoBuf.String(), "component=test")
}

func TestSetup_ProdWritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(env.Prod, &buf)
	logger.Debug("hidden")
	logger.Info("visible", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "v", rec["k"])
	assert.Same(t, logger, slog.Default())
}

func TestNamed_FollowsDefaultSetAfterCreation(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	named := Named("codeauth/test").WithGroup("req").With("id", 7)

	var buf bytes.Buffer
	Setup(env.Dev, &buf)
	named.Info("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "logger=codeauth/test")
	assert.Contains(t, out, "req.id=7")
}
