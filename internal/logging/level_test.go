package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(NewWriter(&buf, LevelWarn), "", log.LstdFlags)

	logger.Printf("INFO: replaying cached turn")
	logger.Printf("Starting taskchat...")
	logger.Printf("WARN: tool createTasks failed: boom")
	logger.Printf("ERROR: failed to save conversation")

	out := buf.String()
	assert.NotContains(t, out, "replaying")
	assert.NotContains(t, out, "Starting")
	assert.Contains(t, out, "WARN: tool createTasks failed")
	assert.Contains(t, out, "ERROR: failed to save conversation")
}

func TestWriterUsesLeadingTag(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(NewWriter(&buf, LevelWarn), "", log.LstdFlags)

	logger.Printf("INFO: ERROR: text quoted from a user")
	assert.Empty(t, buf.String())
}
