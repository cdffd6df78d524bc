package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestLogger_DerivedLoggersShareEntries(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("component", "session")

	child.Info(context.Background(), "browser launched", map[string]interface{}{"headless": false})
	log.Warn(context.Background(), "parent entry", nil)

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "session", entries[0].Fields["component"])
	assert.Equal(t, false, entries[0].Fields["headless"])
	assert.NotContains(t, entries[1].Fields, "component")
	assert.True(t, log.HasMessage("browser launched"))
	assert.Len(t, log.EntriesWithLevel("warn"), 1)

	log.Reset()
	assert.Empty(t, child.(*TestLogger).Entries())
}

func TestConsoleLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger("debug", &buf)

	log.WithFields(map[string]interface{}{"action": "click"}).Debug(context.Background(), "capability call", map[string]interface{}{"x": 10})

	out := buf.String()
	assert.Contains(t, out, "capability call")
	assert.Contains(t, out, "action=click")
	assert.Contains(t, out, "x=10")
}

func TestLogrusLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger("not-a-level", &buf)

	log.Debug(context.Background(), "hidden", nil)
	log.Info(context.Background(), "shown", nil)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
