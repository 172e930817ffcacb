package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		log, err := NewLogger("warn", "json")
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zap.InfoLevel))
		assert.True(t, log.Core().Enabled(zap.WarnLevel))
	})

	t.Run("Console", func(t *testing.T) {
		log, err := NewLogger("debug", "console")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zap.DebugLevel))
	})

	t.Run("Options", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		log, err := NewLogger("info", "json",
			zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }),
			zap.Fields(zap.String("service", "player-trade")),
		)
		require.NoError(t, err)

		log.Info("hello")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "player-trade", logs.All()[0].ContextMap()["service"])
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := NewLogger("loud", "json")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
