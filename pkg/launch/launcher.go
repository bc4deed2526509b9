// Package launch starts and stops the managed OS processes. Processes are
// identified by command-line pattern match rather than durable PID state, so
// stop works across invocations and after crashes.
package launch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dukyai/voicectl/pkg/proc"
	"github.com/dukyai/voicectl/pkg/registry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// Handle tracks one launched process for the duration of a single run. It is
// never persisted; a later stop re-discovers targets by pattern match.
type Handle struct {
	ServiceName string    `json:"service"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
	State       State     `json:"state"`
}

// LaunchError marks a single service that failed to spawn. It is recorded in
// the run report and does not abort the rest of the start sequence.
type LaunchError struct {
	Service string
	Err     error
}

func (e *LaunchError) Error() string {
	return "launch " + e.Service + ": " + e.Err.Error()
}

func (e *LaunchError) Unwrap() error { return e.Err }

type Options struct {
	ShutdownTimeout time.Duration
}

type Launcher struct {
	opts Options
}

func New(opts Options) *Launcher {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 3 * time.Second
	}
	return &Launcher{opts: opts}
}

// Start spawns the spec's command with the spec's env merged over the ambient
// environment and combined output appended to the spec's log path. Any live
// process matching the spec's pattern is terminated first, so at most one
// instance per service exists afterwards.
func (l *Launcher) Start(ctx context.Context, spec registry.ServiceSpec) (*Handle, error) {
	if spec.MatchPattern != "" {
		n := l.TerminateMatching(ctx, spec.MatchPattern)
		if n > 0 {
			log.Info().Str("service", spec.Name).Int("terminated", n).Msg("replaced running instances")
		}
	}

	var stdout, stderr *os.File
	if spec.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
			return nil, &LaunchError{Service: spec.Name, Err: errors.Wrap(err, "mkdir log dir")}
		}
		f, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, &LaunchError{Service: spec.Name, Err: errors.Wrap(err, "open log")}
		}
		defer func() { _ = f.Close() }()
		stdout, stderr = f, f
	}

	// #nosec G204 -- commands come from the operator's own service catalog.
	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Service: spec.Name, Err: errors.Wrap(err, "start service")}
	}

	pid := cmd.Process.Pid
	log.Info().Str("service", spec.Name).Int("pid", pid).Strs("command", spec.Command).Msg("service started")
	go func() { _ = cmd.Wait() }()

	return &Handle{
		ServiceName: spec.Name,
		PID:         pid,
		StartedAt:   time.Now(),
		State:       StateStarting,
	}, nil
}

// TerminateMatching signals every live process whose command line contains
// pattern, escalating to SIGKILL for survivors. It never fails the caller;
// zero matches is the normal idle case and returns 0.
func (l *Launcher) TerminateMatching(ctx context.Context, pattern string) int {
	pids := proc.Match(pattern)
	if len(pids) == 0 {
		return 0
	}

	for _, pid := range pids {
		signalGroup(pid, syscall.SIGTERM)
	}

	deadline := time.Now().Add(l.opts.ShutdownTimeout)
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	for anyAlive(pids) && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			// Escalate immediately on cancellation.
			deadline = time.Now()
		case <-t.C:
		}
	}

	for _, pid := range pids {
		if proc.Alive(pid) {
			log.Warn().Int("pid", pid).Str("pattern", pattern).Msg("process survived SIGTERM; killing")
			signalGroup(pid, syscall.SIGKILL)
		}
	}

	killDeadline := time.Now().Add(2 * time.Second)
	for anyAlive(pids) && time.Now().Before(killDeadline) {
		<-t.C
	}

	log.Info().Str("pattern", pattern).Int("count", len(pids)).Msg("terminated matching processes")
	return len(pids)
}

// TerminateAll applies TerminateMatching for every spec and returns the
// per-service termination counts. Idempotent: an already-stopped stack yields
// all zeroes.
func (l *Launcher) TerminateAll(ctx context.Context, specs []registry.ServiceSpec) map[string]int {
	counts := make(map[string]int, len(specs))
	for _, spec := range specs {
		if spec.MatchPattern == "" {
			counts[spec.Name] = 0
			continue
		}
		counts[spec.Name] = l.TerminateMatching(ctx, spec.MatchPattern)
	}
	return counts
}

func signalGroup(pid int, sig syscall.Signal) {
	pgid, err := syscall.Getpgid(pid)
	if err == nil && pgid != syscall.Getpgrp() {
		_ = syscall.Kill(-pgid, sig)
		return
	}
	// Group gone, or the process shares our own group: signal the pid alone.
	_ = syscall.Kill(pid, sig)
}

func anyAlive(pids []int) bool {
	for _, pid := range pids {
		if proc.Alive(pid) {
			return true
		}
	}
	return false
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
