package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_DisabledDiscards(t *testing.T) {
	l, closeFn, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	require.False(t, l.Enabled(t.Context(), slog.LevelError))
	require.NoError(t, closeFn())
}

func TestNew_Writer(t *testing.T) {
	var out bytes.Buffer
	l, _, err := New(Options{Enabled: true, Writer: &out, Level: slog.LevelDebug})
	require.NoError(t, err)
	l.Debug("hello", "tx", 7)
	require.Contains(t, out.String(), "msg=hello")
	require.Contains(t, out.String(), "tx=7")

	out.Reset()
	l, _, err = New(Options{Enabled: true, Writer: &out, JSON: true})
	require.NoError(t, err)
	l.Debug("hidden")
	l.Info("shown")
	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), `"msg":"shown"`)
}

func TestNew_FileAndRetention(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -40).Format(dateLayout)+logSuffix)
	recent := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -3).Format(dateLayout)+logSuffix)
	other := filepath.Join(dir, "keep-me.txt")
	for _, p := range []string{old, recent, other} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	l, closeFn, err := New(Options{Enabled: true, LogDir: dir})
	require.NoError(t, err)
	l.Info("opened")
	require.NoError(t, closeFn())

	require.NoFileExists(t, old)
	require.FileExists(t, recent)
	require.FileExists(t, other)

	today := filepath.Join(dir, logPrefix+time.Now().Format(dateLayout)+logSuffix)
	data, err := os.ReadFile(today)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"opened"`)
}

func TestInit_ReplacesGlobal(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	var out bytes.Buffer
	_, err := Init(Options{Enabled: true, Writer: &out})
	require.NoError(t, err)
	L.Info("global")
	require.Contains(t, out.String(), "global")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelError, ParseLevel("Error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
