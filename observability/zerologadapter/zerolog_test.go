package zerologadapter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-hue/observability"
	"github.com/lexfrei/go-hue/observability/zerologadapter"
)

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerologadapter.New(zerolog.New(&buf).Level(zerolog.DebugLevel)).
		With(observability.Field{Key: "bridge_id", Value: "001788fffe000001"})

	logger.Warn("retrying request",
		observability.Field{Key: "attempt", Value: 2},
		observability.Field{Key: "wait", Value: 250 * time.Millisecond},
		observability.Field{Key: "error", Value: errors.New("connection refused")},
		observability.Field{Key: "path", Value: "/api/:key/lights"},
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "retrying request", entry["message"])
	assert.Equal(t, "001788fffe000001", entry["bridge_id"])
	assert.InDelta(t, 2, entry["attempt"], 0)
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "/api/:key/lights", entry["path"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerologadapter.New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}
