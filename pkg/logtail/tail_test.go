package logtail

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svc.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLines_Tail(t *testing.T) {
	path := writeLog(t, "a\nb\nc\nd\n")
	lines, err := Lines(path, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, lines)
}

func TestLines_FewerThanRequested(t *testing.T) {
	path := writeLog(t, "only\n")
	lines, err := Lines(path, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, lines)
}

func TestLines_MaxBytesDropsPartialFirstLine(t *testing.T) {
	path := writeLog(t, strings.Repeat("x", 100)+"\nshort\n")
	lines, err := Lines(path, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, lines)
}

func TestLines_MissingFile(t *testing.T) {
	_, err := Lines(filepath.Join(t.TempDir(), "nope.log"), 5, 0)
	require.Error(t, err)
	_, err = Lines("", 5, 0)
	require.Error(t, err)
}

func TestParseSince(t *testing.T) {
	ts, err := ParseSince("2024-06-01 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())

	_, err = ParseSince("definitely not a date")
	require.Error(t, err)
}

func TestFilterSince(t *testing.T) {
	lines := []string{
		"2024-06-01 09:00:00 old entry",
		"  continuation of old",
		"2024-06-01 11:00:00 new entry",
		"  continuation of new",
		"no timestamp at all",
	}
	since, err := ParseSince("2024-06-01 10:00:00")
	require.NoError(t, err)

	got := FilterSince(lines, since)
	assert.Equal(t, []string{
		"2024-06-01 11:00:00 new entry",
		"  continuation of new",
		"no timestamp at all",
	}, got)
}

func TestFilterSince_AllOld(t *testing.T) {
	lines := []string{"2020-01-01 00:00:00 ancient"}
	got := FilterSince(lines, time.Now())
	assert.Empty(t, got)
}
