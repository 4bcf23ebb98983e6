package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func TestNewGologLogger(t *testing.T) {
	glogger := golog.New()
	logger := NewGologLogger(glogger)

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestGologLogger_LevelControl(t *testing.T) {
	glogger := golog.New()
	logger := NewGologLogger(glogger)

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_FormatsMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGologLoggerWithLevel(&buf, LogLevelDebug)

	logger.Info("run %s finished with %d degraded node(s)", "r1", 2)
	assert.Contains(t, buf.String(), "run r1 finished with 2 degraded node(s)")
	assert.Contains(t, buf.String(), prefix)
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGologLoggerWithLevel(&buf, LogLevelError)

	logger.Debug("filtered debug")
	logger.Info("filtered info")
	logger.Warn("filtered warn")
	assert.Empty(t, buf.String())

	logger.Error("kept %d", 1)
	assert.Contains(t, buf.String(), "kept 1")
}

func TestGologLogger_CustomGologInstance(t *testing.T) {
	glogger := golog.New()
	glogger.SetLevel("error")
	glogger.SetPrefix("[CUSTOM] ")

	logger := NewGologLogger(glogger)
	assert.NotNil(t, logger)

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())
}
