package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func spec(name string, order int) ServiceSpec {
	return ServiceSpec{Name: name, Order: order, Command: []string{"true"}}
}

func TestNew_SortsByOrder(t *testing.T) {
	r, err := New([]ServiceSpec{spec("tts", 4), spec("proxy", 1), spec("whisper", 3), spec("tunnel", 2)})
	require.NoError(t, err)
	require.Equal(t, []string{"proxy", "tunnel", "whisper", "tts"}, r.Names())
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := New([]ServiceSpec{spec("proxy", 1), spec("proxy", 2)})
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	require.Contains(t, ce.Reason, "proxy")
}

func TestNew_DuplicateOrder(t *testing.T) {
	_, err := New([]ServiceSpec{spec("proxy", 1), spec("tunnel", 1)})
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestNew_MissingCommand(t *testing.T) {
	_, err := New([]ServiceSpec{{Name: "proxy", Order: 1}})
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestNew_HealthWithoutURL(t *testing.T) {
	s := spec("whisper", 1)
	s.Health = &HealthCheck{ExpectField: "status", ExpectValue: "ok"}
	_, err := New([]ServiceSpec{s})
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestList_ReturnsCopy(t *testing.T) {
	r, err := New([]ServiceSpec{spec("proxy", 1), spec("tunnel", 2)})
	require.NoError(t, err)
	l := r.List()
	l[0].Name = "mutated"
	require.Equal(t, "proxy", r.List()[0].Name)
}

func TestRedactedEnv(t *testing.T) {
	s := spec("tunnel", 1)
	s.Env = map[string]string{
		"TUNNEL_TOKEN":    "abc123",
		"LD_LIBRARY_PATH": "/usr/local/cuda/lib64",
	}
	red := s.RedactedEnv()
	require.Equal(t, "[REDACTED]", red["TUNNEL_TOKEN"])
	require.Equal(t, "/usr/local/cuda/lib64", red["LD_LIBRARY_PATH"])
	require.Equal(t, "abc123", s.Env["TUNNEL_TOKEN"], "original untouched")

	s.Env = nil
	require.Nil(t, s.RedactedEnv())
}

func TestLookup(t *testing.T) {
	r, err := New([]ServiceSpec{spec("proxy", 1)})
	require.NoError(t, err)
	s, ok := r.Lookup("proxy")
	require.True(t, ok)
	require.Equal(t, 1, s.Order)
	_, ok = r.Lookup("missing")
	require.False(t, ok)
}
