package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json at info", func(t *testing.T) {
		logger, err := New("info", "json")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console at debug", func(t *testing.T) {
		logger, err := New("debug", "console")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New("chatty", "json")
		assert.Error(t, err)
	})
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Info("discarded") })
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger()
	logger.Info("audit complete", zap.String("session_id", "abc"))
	logger.Warn("slow parse")

	assert.Len(t, logger.All(), 2)
	assert.Equal(t, 1, logger.FilterMessage("audit").Len())
	logger.AssertLogged(t, zapcore.WarnLevel, "slow")
}
