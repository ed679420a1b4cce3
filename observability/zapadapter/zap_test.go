package zapadapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lexfrei/go-hue/observability"
	"github.com/lexfrei/go-hue/observability/zapadapter"
)

func TestLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zapadapter.New(zap.New(core)).
		With(observability.Field{Key: "bridge_id", Value: "001788fffe000001"})

	logger.Info("pairing state changed",
		observability.Field{Key: "from", Value: "pairing"},
		observability.Field{Key: "to", Value: "paired"},
	)
	logger.Debug("link button not pressed")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "pairing state changed", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "001788fffe000001", ctx["bridge_id"])
	assert.Equal(t, "pairing", ctx["from"])
	assert.Equal(t, "paired", ctx["to"])
}

func TestNilLogger(t *testing.T) {
	t.Parallel()

	logger := zapadapter.New(nil)
	logger.Error("discarded")
	assert.NotNil(t, logger.With())
}
