package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = "voicectl.yaml"

// File is the on-disk configuration. An absent file means "run the built-in
// stack"; a file that lists services replaces the built-in catalog entirely.
type File struct {
	LogDir        string    `yaml:"log_dir,omitempty"`
	SettleSeconds int       `yaml:"settle_seconds,omitempty"`
	Services      []Service `yaml:"services,omitempty"`
}

type Service struct {
	Name    string            `yaml:"name"`
	Order   int               `yaml:"order"`
	Command []string          `yaml:"command"`
	Dir     string            `yaml:"dir,omitempty"`
	Log     string            `yaml:"log,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Match   string            `yaml:"match,omitempty"`
	Health  *Health           `yaml:"health,omitempty"`
}

type Health struct {
	URL         string `yaml:"url"`
	ExpectField string `yaml:"expect_field,omitempty"`
	ExpectValue string `yaml:"expect_value,omitempty"`
	Expr        string `yaml:"expr,omitempty"`
	TimeoutMs   int64  `yaml:"timeout_ms,omitempty"`
	IntervalMs  int64  `yaml:"interval_ms,omitempty"`
	MaxAttempts int    `yaml:"max_attempts,omitempty"`
}

func DefaultPath(root string) string {
	return filepath.Join(root, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// Settle returns the configured settle interval, defaulting to 5s.
func (f *File) Settle() time.Duration {
	if f.SettleSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(f.SettleSeconds) * time.Second
}

// Specs converts the file's services (or the built-in default stack when the
// file declares none) into registry specs, filling in per-service log paths
// under logDir for services that do not pin one.
func (f *File) Specs(logDir string) []registry.ServiceSpec {
	services := f.Services
	if len(services) == 0 {
		services = defaultServices()
	}

	out := make([]registry.ServiceSpec, 0, len(services))
	for _, s := range services {
		spec := registry.ServiceSpec{
			Name:         s.Name,
			Order:        s.Order,
			Command:      s.Command,
			Dir:          s.Dir,
			LogPath:      s.Log,
			Env:          s.Env,
			MatchPattern: s.Match,
		}
		if spec.LogPath == "" && logDir != "" {
			spec.LogPath = filepath.Join(logDir, s.Name+".log")
		}
		if s.Health != nil {
			spec.Health = &registry.HealthCheck{
				URL:         s.Health.URL,
				ExpectField: s.Health.ExpectField,
				ExpectValue: s.Health.ExpectValue,
				Expr:        s.Health.Expr,
				Timeout:     time.Duration(s.Health.TimeoutMs) * time.Millisecond,
				Interval:    time.Duration(s.Health.IntervalMs) * time.Millisecond,
				MaxAttempts: s.Health.MaxAttempts,
			}
		}
		out = append(out, spec)
	}
	return out
}

// defaultServices is the stack this tool was built to operate: nginx fronting
// the speech APIs, the tunnel client exposing nginx, then the ASR and TTS
// servers. The API entries assume the model repos are already provisioned.
func defaultServices() []Service {
	cudaLibs := "/usr/local/cuda/lib64:/usr/lib/x86_64-linux-gnu"
	return []Service{
		{
			Name:    "proxy",
			Order:   1,
			Command: []string{"nginx", "-g", "daemon off;"},
			Match:   "nginx",
		},
		{
			Name:    "tunnel",
			Order:   2,
			Command: []string{"cloudflared", "tunnel", "run", "voice"},
			Match:   "cloudflared tunnel",
		},
		{
			Name:    "whisper",
			Order:   3,
			Command: []string{"uv", "run", "python", "app.py"},
			Dir:     "whisper",
			Env:     map[string]string{"LD_LIBRARY_PATH": cudaLibs},
			Match:   "python app.py",
			Health: &Health{
				URL:         "http://127.0.0.1:7861/api/health",
				ExpectField: "status",
				ExpectValue: "ok",
				TimeoutMs:   5000,
				IntervalMs:  3000,
				MaxAttempts: 40,
			},
		},
		{
			Name:    "tts",
			Order:   4,
			Command: []string{"uv", "run", "python", "apps/api_server.py"},
			Dir:     "tts",
			Env:     map[string]string{"LD_LIBRARY_PATH": cudaLibs},
			Match:   "apps/api_server.py",
			Health: &Health{
				URL:         "http://127.0.0.1:8000/api/health",
				ExpectField: "status",
				ExpectValue: "ok",
				TimeoutMs:   5000,
				IntervalMs:  3000,
				MaxAttempts: 40,
			},
		},
	}
}
