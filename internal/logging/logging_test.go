package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	} {
		log, err := New(tc.level, "json")
		require.NoError(t, err, tc.level)
		assert.True(t, log.Core().Enabled(tc.want), tc.level)
		assert.False(t, log.Core().Enabled(tc.want-1), tc.level)
	}
}

func TestNew_Console(t *testing.T) {
	log, err := New("info", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)
}
