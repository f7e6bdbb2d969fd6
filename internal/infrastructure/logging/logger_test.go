package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	for _, cfg := range []Config{DefaultConfig(), DevelopmentConfig()} {
		logger, err := New(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger.Logger)
	}
}

func TestNamedAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := Wrap(zap.New(core))

	logger.Named("window").With(zap.String("boot_id", "b1")).Info("registry initialized")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "window", entries[0].LoggerName)
	assert.Equal(t, "b1", entries[0].ContextMap()["boot_id"])
}

func TestWrapNil(t *testing.T) {
	assert.NotNil(t, Wrap(nil).Logger)
}
