package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLogger_Levels(t *testing.T) {
	defer SetLogger(zap.NewNop())

	l, err := InitLogger("warn")
	require.NoError(t, err)
	assert.Same(t, l, GetLogger())
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = InitLogger("chatty")
	assert.Error(t, err)
	assert.Same(t, l, GetLogger(), "failed init keeps the previous logger")
}

func TestSetLogger_Observer(t *testing.T) {
	defer SetLogger(zap.NewNop())

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	GetLogger().Info("windows built", zap.Int("windows", 3))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "windows built", entry.Message)
	assert.Equal(t, int64(3), entry.ContextMap()["windows"])
}
