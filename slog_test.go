package lokiship

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerSink(t *testing.T, backend *mockBackend) *Sink {
	t.Helper()
	return newTestSink(t, backend, func(b *Builder) {
		b.FlushThreshold(1).
			IncludeLevel().
			WithStructuredFields()
	})
}

func lastStream(t *testing.T, backend *mockBackend) Stream {
	t.Helper()

	payloads := backend.getPayloads()
	require.NotEmpty(t, payloads)

	var payload Payload
	require.NoError(t, json.Unmarshal(payloads[len(payloads)-1], &payload))
	require.NotEmpty(t, payload.Streams)
	return payload.Streams[0]
}

func TestHandler_Handle(t *testing.T) {
	backend := &mockBackend{}
	sink := newHandlerSink(t, backend)

	logger := slog.New(NewHandler(sink, &HandlerOptions{Target: "app"}))
	logger.Warn("something happened", "request_id", "42")

	stream := lastStream(t, backend)
	assert.Equal(t, "WARN", stream.Stream["level"])
	assert.Equal(t, "42", stream.Stream["request_id"])
	require.Len(t, stream.Values, 1)
	assert.Equal(t, "something happened", stream.Values[0][1])
}

func TestHandler_LevelGate(t *testing.T) {
	backend := &mockBackend{}
	sink := newHandlerSink(t, backend)

	logger := slog.New(NewHandler(sink, &HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("filtered out")
	assert.Empty(t, backend.getPayloads())

	logger.Error("kept")
	assert.Len(t, backend.getPayloads(), 1)
}

func TestHandler_WithAttrsAndGroups(t *testing.T) {
	backend := &mockBackend{}
	sink := newHandlerSink(t, backend)

	logger := slog.New(NewHandler(sink, nil)).
		With("service", "a").
		WithGroup("req").
		With("method", "GET")
	logger.Info("handled", "status", "200")

	stream := lastStream(t, backend)
	assert.Equal(t, "a", stream.Stream["service"])
	assert.Equal(t, "GET", stream.Stream["req.method"])
	assert.Equal(t, "200", stream.Stream["req.status"])
}

func TestHandler_TargetFeedbackGuard(t *testing.T) {
	backend := &mockBackend{}
	sink := newHandlerSink(t, backend)

	handler := NewHandler(sink, &HandlerOptions{Target: "lokiship.transport"})
	require.NoError(t, handler.Handle(context.Background(), slog.Record{Message: "internal", Level: slog.LevelError}))

	assert.Empty(t, backend.getPayloads())
}

func TestLevelFromSlog(t *testing.T) {
	assert.Equal(t, LevelTrace, levelFromSlog(slog.LevelDebug-4))
	assert.Equal(t, LevelDebug, levelFromSlog(slog.LevelDebug))
	assert.Equal(t, LevelInfo, levelFromSlog(slog.LevelInfo))
	assert.Equal(t, LevelWarn, levelFromSlog(slog.LevelWarn))
	assert.Equal(t, LevelError, levelFromSlog(slog.LevelError))
}
