package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJSONToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ledger.log")

	logger, err := NewLogger(Options{Service: "minishop-ledger", Env: "test", LogFile: path})
	require.NoError(t, err)

	WithTrace(logger, "", SystemSpanID).Info("http_server_start", zap.String("addr", ":8080"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "http_server_start", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "minishop-ledger", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "unknown", entry["trace_id"])
	assert.Equal(t, "system", entry["span_id"])
	assert.Contains(t, entry, "ts")
}
