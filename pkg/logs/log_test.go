package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogConfig_Default(t *testing.T) {
	conf := LogConfig{}.Default()

	assert.Equal(t, "info", conf.Level)
	assert.Equal(t, []string{"stdout"}, conf.OutputPaths)
}

func TestReplaceLogger_ShouldWriteToConfiguredOutput(t *testing.T) {
	previous := GetLogger()
	defer func() {
		log = previous
		SetLevel(zapcore.InfoLevel)
	}()

	out := filepath.Join(t.TempDir(), "tracker.log")
	err := ReplaceLogger(&LogConfig{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	GetLogger().Debug("transaction: datagram dropped", zap.Uint32("transaction", 42))
	_ = GetLogger().Sync()

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "transaction: datagram dropped")
	assert.Contains(t, string(content), "42")
}

func TestReplaceLogger_ShouldFailOnUnknownLevel(t *testing.T) {
	previous := GetLogger()
	defer func() { log = previous }()

	err := ReplaceLogger(&LogConfig{Level: "verbose", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(zapcore.InfoLevel)

	SetLevel(zapcore.WarnLevel)
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
}
