package logger

import (
	"os"
	"path/filepath"
	"testing"

	"kiwoom-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dashboard.log")
	l := NewLogger(&models.MConfig{LogLevel: "WARNING", LogFile: path}, "SessionGate")

	l.Info("hidden %d", 1)
	l.Warning("token renewal failed: %s", "timeout")
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "token renewal failed: timeout")
	assert.Contains(t, string(data), "SessionGate")
	assert.NotContains(t, string(data), "hidden")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
