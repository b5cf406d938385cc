package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 15, 4, 5, 6_000_000, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "split leaf",
		Data:    logrus.Fields{"right": 3, "left": 1},
	}
	out, err := Formatter{}.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[15:04:05.006] [WARN] split leaf left=1 right=3\n", string(out))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	log, closer, err := New(Config{Level: "debug", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.WithField("page", 7).Debug("loaded page")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBU] loaded page page=7")
}

func TestNewStderr(t *testing.T) {
	log, closer, err := New(Config{Level: "error"})
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, log.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestDiscard(t *testing.T) {
	log := Discard()
	var buf bytes.Buffer
	log.Out = &buf
	log.Error("dropped")
	assert.Empty(t, buf.String())
}
