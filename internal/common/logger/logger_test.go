package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestZapAdapter_FieldsArePropagated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.Info("hello", map[string]interface{}{"userId": "u-1"})

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "u-1", entries[0].ContextMap()["userId"])
}

func TestZapAdapter_WithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "onboarding"})

	log.Warn("slow persistence", nil)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "onboarding", entries[0].ContextMap()["component"])
}

func TestNew_LevelParsing(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		assert.NotNil(t, New(level, "console"))
	}
}
