package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCustomLogger(&buf, LogLevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("node %s degraded", "gap_analyst")
	logger.Error("aborted")
	out := buf.String()
	assert.Contains(t, out, "[careergraph] ")
	assert.Contains(t, out, "[WARN] node gap_analyst degraded")
	assert.Contains(t, out, "[ERROR] aborted")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
		"off":     LogLevelNone,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "UNKNOWN(9)", LogLevel(9).String())
}

func TestSetDefaultLogger(t *testing.T) {
	orig := GetDefaultLogger()
	t.Cleanup(func() { SetDefaultLogger(orig) })

	var buf bytes.Buffer
	SetDefaultLogger(NewCustomLogger(&buf, LogLevelDebug))
	Debug("d %d", 1)
	Info("i")
	Warn("w")
	Error("e")
	out := buf.String()
	for _, s := range []string{"[DEBUG] d 1", "[INFO] i", "[WARN] w", "[ERROR] e"} {
		assert.Contains(t, out, s)
	}

	SetDefaultLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetDefaultLogger())
}
