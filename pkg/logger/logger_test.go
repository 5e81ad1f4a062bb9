package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestInitReplacesGlobals(t *testing.T) {
	Init("debug")
	assert.NotNil(t, Log)
	assert.NotNil(t, Sugar)
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWriterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter("info", &buf)
	log.Debug("hidden")
	log.Info("shown", zap.String("user", "alice"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"user":"alice"`)
	assert.Contains(t, out, `"level":"INFO"`)
}
