package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlog_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, FormatJSON, InfoLevel, false)

	l.Info("session opened", "node", 0, "model", "PS 2042-06B")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "session opened", rec["msg"])
	assert.Equal(t, "PS 2042-06B", rec["model"])
	assert.Contains(t, rec, "ts", "time key should be renamed to ts")
	assert.NotContains(t, rec, "time")
}

func TestSlog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, FormatJSON, WarnLevel, false)

	l.Debug("debug")
	l.Info("info")
	assert.Zero(t, buf.Len())

	l.Warn("warn")
	assert.NotZero(t, buf.Len())
	assert.Equal(t, WarnLevel, l.Level())

	buf.Reset()
	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	l.Debug("debug")
	assert.NotZero(t, buf.Len())
}

func TestSlog_WithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewSlogWithWriter(&buf, FormatJSON, ErrorLevel, false)
	child := parent.With("component", "transport")

	child.Info("dropped")
	assert.Zero(t, buf.Len())

	parent.SetLevel(InfoLevel)
	child.Info("kept")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "transport", rec["component"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}
