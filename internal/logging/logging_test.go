package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info("hidden")
	require.Zero(t, buf.Len())

	l.Warn("shown", "order_id", "o1")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "o1", line["order_id"])
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard()
	ctx := IntoContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx))

	fallback := Discard()
	require.Same(t, fallback, FromContext(context.Background(), fallback))
	require.NotNil(t, FromContext(context.Background()))
}
