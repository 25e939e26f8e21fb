package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"DEBUG", logrus.DebugLevel},
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, ParseLevel(test.input), "level %q", test.input)
	}
}

func TestWithErrorAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	UseOutput(&buf, logrus.InfoLevel)

	WithError(errors.New("connection refused"), "intake").Error("Tracker update failed")

	out := buf.String()
	assert.Contains(t, out, "Tracker update failed")
	assert.Contains(t, out, "component=intake")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, "stack_trace")
}

func TestHelpersAcceptNilFields(t *testing.T) {
	var buf bytes.Buffer
	UseOutput(&buf, logrus.DebugLevel)

	Debug("debug line", nil)
	Info("info line", nil)
	Warn("warn line", map[string]interface{}{"ticket_id": 7})

	out := buf.String()
	assert.Contains(t, out, "debug line")
	assert.Contains(t, out, "info line")
	assert.Contains(t, out, "ticket_id=7")
}
