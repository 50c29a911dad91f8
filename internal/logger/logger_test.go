package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() {
		color.NoColor = prev
		SetOutput(color.Output)
		SetLevel("info")
	})
	return buf
}

func TestDebugFollowsLevel(t *testing.T) {
	buf := capture(t)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetLevel("DEBUG")
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "DEBUG: shown 2")
}

func TestRequestLine(t *testing.T) {
	buf := capture(t)

	Request("GET", "/challenges", 404, 1500*time.Microsecond)
	line := buf.String()
	assert.Contains(t, line, "GET")
	assert.Contains(t, line, "[404]")
	assert.Contains(t, line, "(1ms)")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250µs", formatDuration(250*time.Microsecond))
	assert.Equal(t, "12ms", formatDuration(12*time.Millisecond))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
}
