package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"ERROR", logrus.ErrorLevel},
		{"trace", logrus.TraceLevel},
		{"warning", logrus.WarnLevel},
		{"warn", logrus.WarnLevel},
		{"", logrus.InfoLevel},
		{"nonsense", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, GetLevel(tt.level))
		})
	}
}

func TestSetup_LogFile(t *testing.T) {
	defer func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	}()

	logFile := filepath.Join(t.TempDir(), "healthdash")
	Setup(LoggerSetupParams{
		LogFileName: logFile,
		LogLevel:    "debug",
	})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logrus.Debugln("written to file")

	content, err := os.ReadFile(logFile + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
}

func TestSentryLevel(t *testing.T) {
	hook := NewSentryHook([]logrus.Level{logrus.ErrorLevel})
	assert.Equal(t, []logrus.Level{logrus.ErrorLevel}, hook.Levels())
	assert.EqualValues(t, "fatal", sentryLevel(logrus.PanicLevel))
	assert.EqualValues(t, "error", sentryLevel(logrus.ErrorLevel))
	assert.EqualValues(t, "debug", sentryLevel(logrus.TraceLevel))
}
