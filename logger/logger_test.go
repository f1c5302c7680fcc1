package logger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
	assert.True(t, ShouldLogTrace(3))
	assert.False(t, ShouldLogTrace(2))
}

func TestSetLevelIsShared(t *testing.T) {
	require.NoError(t, InitializeWithVerbosity(false, VerbosityInfo))
	defer func() { Logger = zap.NewNop().Sugar() }()

	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	SetLevel(zapcore.DebugLevel)
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	SetLevel(zapcore.InfoLevel)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := WithOperation(WithRequestID(context.Background(), "req-1"), "GetComponents")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldRequestID, "req-1", FieldOperation, "GetComponents"}, fields)
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, FieldsFromContext(context.Background()))
}

func TestMinimalEncoder(t *testing.T) {
	enc := newMinimalEncoder()
	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2024, 1, 1, 13, 4, 35, 0, time.UTC),
		LoggerName: "gqlserver.ws",
		Message:    "Client disconnected",
	}, []zapcore.Field{
		zap.String(FieldClientID, "0123456789abcdef"),
		zap.Int(FieldNodes, 3),
		zap.Int(FieldLinks, 2),
	})
	require.NoError(t, err)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "13:04:35")
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "g.ws")
	assert.Contains(t, line, "Client disconnected")
	assert.Contains(t, line, "01234567")
	assert.NotContains(t, line, "0123456789abcdef")
	assert.Contains(t, line, " nodes, ")
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "g.builder", abbreviateName("graph.builder"))
	assert.Equal(t, "server", abbreviateName("server"))
}
