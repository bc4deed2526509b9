package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptional_Missing(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "voicectl.yaml"))
	require.NoError(t, err)
	require.Empty(t, cfg.Services)
	assert.Equal(t, 5*time.Second, cfg.Settle())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voicectl.yaml")
	data := `
log_dir: /tmp/voicelogs
settle_seconds: 2
services:
  - name: echo
    order: 1
    command: ["echo", "hi"]
    match: "echo hi"
    health:
      url: http://127.0.0.1:9999/api/health
      expect_field: status
      expect_value: ok
      timeout_ms: 500
      interval_ms: 100
      max_attempts: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/voicelogs", cfg.LogDir)
	assert.Equal(t, 2*time.Second, cfg.Settle())

	specs := cfg.Specs(cfg.LogDir)
	require.Len(t, specs, 1)
	s := specs[0]
	assert.Equal(t, "echo", s.Name)
	assert.Equal(t, []string{"echo", "hi"}, s.Command)
	assert.Equal(t, filepath.Join("/tmp/voicelogs", "echo.log"), s.LogPath)
	require.NotNil(t, s.Health)
	assert.Equal(t, 500*time.Millisecond, s.Health.Timeout)
	assert.Equal(t, 100*time.Millisecond, s.Health.Interval)
	assert.Equal(t, 3, s.Health.MaxAttempts)
}

func TestSpecs_DefaultStack(t *testing.T) {
	cfg := &File{}
	specs := cfg.Specs("/var/log/voicectl")
	require.Len(t, specs, 4)

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"proxy", "tunnel", "whisper", "tts"}, names)

	// The model APIs declare the health contract; proxy and tunnel do not.
	assert.Nil(t, specs[0].Health)
	assert.Nil(t, specs[1].Health)
	require.NotNil(t, specs[2].Health)
	require.NotNil(t, specs[3].Health)
	assert.Equal(t, "status", specs[2].Health.ExpectField)
	assert.Equal(t, "ok", specs[2].Health.ExpectValue)

	for _, s := range specs {
		assert.NotEmpty(t, s.MatchPattern, "service %s needs a match pattern", s.Name)
		assert.Equal(t, filepath.Join("/var/log/voicectl", s.Name+".log"), s.LogPath)
	}
}

func TestLoadFromFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: {nope"), 0o644))
	_, err := LoadFromFile(path)
	require.Error(t, err)
}
