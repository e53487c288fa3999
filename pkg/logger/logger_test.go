package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Initialize(Config{Level: level, Format: "json", Output: buf})
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })
	return buf
}

func TestLogger_InfoWritesFieldsAndCaller(t *testing.T) {
	buf := captureJSON(t, "debug")

	Info("cart updated", map[string]interface{}{"user_id": 7})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cart updated", entry["message"])
	assert.Equal(t, float64(7), entry["user_id"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_ErrorIncludesError(t *testing.T) {
	buf := captureJSON(t, "debug")

	Get().Error("save failed", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelFiltersDebug(t *testing.T) {
	buf := captureJSON(t, "warn")

	Debug("hidden")
	Info("hidden")
	assert.Zero(t, buf.Len())

	Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestLogger_WithContext(t *testing.T) {
	buf := captureJSON(t, "info")

	WithContext(map[string]interface{}{"request_id": "abc"}).Info("handled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["request_id"])
}
