package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	require.Equal(t, "debug", LevelString())
	Init("WARN")
	require.Equal(t, "warn", LevelString())
	Init("Error")
	require.Equal(t, "error", LevelString())
	Init("nonsense")
	require.Equal(t, "info", LevelString(), "unknown input falls back to info")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Configure("production", &buf)
	defer Configure("production", os.Stdout)

	Init("warn")
	defer Init("info")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg %d", 7)

	out := buf.String()
	require.NotContains(t, out, "debug-msg")
	require.NotContains(t, out, "info-msg")
	require.Contains(t, out, "warn-msg")
	require.Contains(t, out, "error-msg 7")
}

func TestWithWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	Configure("production", &buf)
	defer Configure("production", os.Stdout)
	Init("info")

	l := With(map[string]interface{}{"content_id": "c-1", "to": "review"})
	l.Info().Msg("transition committed")

	line := strings.TrimSpace(buf.String())
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	require.Equal(t, "c-1", got["content_id"])
	require.Equal(t, "review", got["to"])
	require.Equal(t, "memoryvista", got["service"])
	require.Equal(t, "transition committed", got["message"])
}

func TestConsoleOutputInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	Configure("development", &buf)
	defer Configure("production", os.Stdout)
	Init("info")

	Info("hello")
	require.Contains(t, buf.String(), "hello")
	require.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"), "console writer should not emit JSON")
}
