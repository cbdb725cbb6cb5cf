package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestErrorCarriesScopedFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	log.Error(ctx, "boom", errors.New("boom"))

	line := decodeLine(t, buf)
	require.Equal(t, "req-123", line["request_id"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "test", line["service"])
	require.NotEmpty(t, line["stack"])
}

func TestDeliveryAndActorFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithActor(context.Background(), 42, "partner")
	ctx = log.WithDelivery(ctx, "artwork_order", 7)
	log.Info(ctx, "accepted")

	line := decodeLine(t, buf)
	require.Equal(t, "artwork_order", line["delivery_source"])
	require.EqualValues(t, 7, line["delivery_id"])
	require.EqualValues(t, 42, line["user_id"])
	require.Equal(t, "partner", line["actor_role"])
}

func TestWithEventOmitsEmptyType(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Info(log.WithEvent(context.Background(), "evt-1", ""), "relayed")

	line := decodeLine(t, buf)
	require.Equal(t, "evt-1", line["event_id"])
	require.NotContains(t, line, "event_type")
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := context.Background()
	_ = log.WithField(parent, "scoped", true)
	log.Info(parent, "plain")

	require.NotContains(t, decodeLine(t, buf), "scoped")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	require.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	require.NotContains(t, buf.String(), `"stack"`)
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: "Console", Output: buf})
	log.Info(context.Background(), "hello")

	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}
