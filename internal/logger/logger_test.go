package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesTaggedLinesToFile(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	m, err := newManager(false, dir, nil, &stderr)
	require.NoError(t, err)

	l := &Logger{tag: "relay", m: m}
	l.Info("forwarded", 3, "chunks")
	l.Warn("empty delta")
	l.Error("upstream closed")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "seally_log_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)

	assert.Contains(t, string(content), "[relay] INFO: forwarded 3 chunks\n")
	assert.Contains(t, string(content), "[relay] WARN: empty delta\n")
	assert.Contains(t, string(content), "[relay] ERROR: upstream closed\n")
	assert.Empty(t, stderr.String(), "nothing is echoed outside dev mode")
}

func TestLoggerDevModeEchoesToStderr(t *testing.T) {
	var stderr bytes.Buffer

	m, err := newManager(true, "", nil, &stderr)
	require.NoError(t, err)

	l := &Logger{tag: "session", m: m}
	l.Info("sending", "hello")

	assert.Contains(t, stderr.String(), "[session] INFO: sending hello")
}

func TestLoggerCloseIsIdempotent(t *testing.T) {
	m, err := newManager(false, t.TempDir(), nil, &bytes.Buffer{})
	require.NoError(t, err)

	l := &Logger{tag: "x", m: m}
	l.Close()
	assert.NotPanics(t, l.Close)
	assert.NotPanics(t, func() { l.Info("after close") })
}

func TestLoggerWriteTrimsTrailingNewline(t *testing.T) {
	var stderr bytes.Buffer
	m, err := newManager(true, "", nil, &stderr)
	require.NoError(t, err)

	l := &Logger{tag: "gin", m: m}
	n, err := l.Write([]byte("POST /api/chat 200\n"))
	require.NoError(t, err)

	assert.Equal(t, len("POST /api/chat 200\n"), n)
	assert.Contains(t, stderr.String(), "[gin] INFO: POST /api/chat 200\n")
	assert.NotContains(t, stderr.String(), "200\n\n")
}

func TestNewManagerBadPath(t *testing.T) {
	_, err := newManager(false, filepath.Join(t.TempDir(), "missing", "dir"), nil, &bytes.Buffer{})
	assert.Error(t, err)
}
