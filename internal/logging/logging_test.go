package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("macro run started", zap.Int("steps", 3))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "macro run started", entry["msg"])
	assert.Equal(t, float64(3), entry["steps"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_ConsoleLevels(t *testing.T) {
	tests := []struct {
		level    string
		debugOut bool
		infoOut  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(config.LogConfig{Level: tt.level, Format: "console"}, &buf)
			logger.Debug("debug-line")
			logger.Info("info-line")

			assert.Equal(t, tt.debugOut, bytes.Contains(buf.Bytes(), []byte("debug-line")))
			assert.Equal(t, tt.infoOut, bytes.Contains(buf.Bytes(), []byte("info-line")))
		})
	}
}
