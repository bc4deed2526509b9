package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dukyai/voicectl/pkg/config"
	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	LogDir     string
	Timeout    time.Duration
	Settle     time.Duration
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Path to config file (defaults to ./voicectl.yaml)")
	root.PersistentFlags().String("log-dir", "", "Directory for service logs (defaults to ~/.voicectl/logs)")
	root.PersistentFlags().Duration("timeout", 3*time.Second, "Grace period before SIGKILL when stopping a service")
	root.PersistentFlags().Duration("settle", 0, "Wait after launching before health checks (defaults to config)")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
		cfgPath = config.DefaultPath(cwd)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath, err = filepath.Abs(cfgPath)
		if err != nil {
			return rootOptions{}, err
		}
	}

	logDir, err := cmd.Root().PersistentFlags().GetString("log-dir")
	if err != nil {
		return rootOptions{}, err
	}

	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	settle, err := cmd.Root().PersistentFlags().GetDuration("settle")
	if err != nil {
		return rootOptions{}, err
	}

	return rootOptions{
		ConfigPath: cfgPath,
		LogDir:     logDir,
		Timeout:    timeout,
		Settle:     settle,
	}, nil
}

// loadStack resolves config file, log directory, and registry. A registry
// ConfigError surfaces here, before any process is touched.
func loadStack(opts rootOptions) (*config.File, *registry.Registry, error) {
	cfg, err := config.LoadOptional(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	logDir := opts.LogDir
	if logDir == "" {
		logDir = cfg.LogDir
	}
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolve home dir")
		}
		logDir = filepath.Join(home, ".voicectl", "logs")
	}

	reg, err := registry.New(cfg.Specs(logDir))
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}
