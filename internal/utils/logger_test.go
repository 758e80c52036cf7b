// internal/utils/logger_test.go
package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("verbose"))
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, InfoLevel)

	logger.Debug("hidden")
	logger.WithFields(map[string]interface{}{"b": 2, "a": 1}).Infof("inserted %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="inserted 3"`)
	assert.Contains(t, out, "a=1 b=2")
}

func TestWithFieldDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, DebugLevel)

	_ = logger.WithField("component", "pool")
	logger.Warn("plain")

	assert.NotContains(t, buf.String(), "component=pool")
}
