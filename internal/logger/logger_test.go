package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/itemmanager/internal/config"
)

func TestNewJSON(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "warn", Format: "json"}}
	var buf bytes.Buffer
	log := WithPlayer(New(&buf, cfg), "p-1")

	log.Info("dropped")
	assert.Zero(t, buf.Len(), "info is below warn")

	WithError(log, errors.New("boom")).Warn("spawn failed")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "spawn failed", line["msg"])
	assert.Equal(t, "p-1", line["player_id"])
	assert.Equal(t, "boom", line["error"])
}

func TestNewText(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Format: "text"}}
	var buf bytes.Buffer
	New(&buf, cfg).Debug("switching", "to", 2)
	assert.Contains(t, buf.String(), "msg=switching")
	assert.Contains(t, buf.String(), "to=2")
}
