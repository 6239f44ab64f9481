package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	t.Parallel()
	day := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "journal_2025-03-07.log", Filename(day))
}

func TestWriter_RollsDaily(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	day := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	day = day.Add(24 * time.Hour)
	_, err = w.Write([]byte("next day\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "journal_2025-03-07.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(first))

	next, err := os.ReadFile(filepath.Join(dir, "journal_2025-03-08.log"))
	require.NoError(t, err)
	assert.Equal(t, "next day\n", string(next))

	n, err := w.Write(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewZapLogger_UnusableDir(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewZapLogger(filepath.Join(file, "logs"), false)
	assert.Error(t, err)
}
