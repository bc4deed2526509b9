// Package proc reads process information from /proc: liveness, command
// lines for pattern matching, and per-process statistics.
package proc

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Alive reports whether pid refers to a live, non-zombie process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	if stderrors.Is(err, syscall.EPERM) {
		return true
	}
	return false
}

func isZombie(pid int) bool {
	path := filepath.Join("/proc", strconv.Itoa(pid), "stat")
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	// Format: pid (comm) state ...
	// We want the state character after the closing ')'.
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	rest := bytes.TrimSpace(b[i+1:])
	fields := bytes.Fields(rest)
	if len(fields) < 1 || len(fields[0]) < 1 {
		return false
	}
	return fields[0][0] == 'Z'
}

// Cmdline returns the space-joined command line of pid, or "" if the process
// is gone or unreadable.
func Cmdline(pid int) string {
	b, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil || len(b) == 0 {
		return ""
	}
	b = bytes.TrimRight(b, "\x00")
	return string(bytes.ReplaceAll(b, []byte{0}, []byte{' '}))
}

// List enumerates the PIDs currently present under /proc.
func List() []int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// Match returns the PIDs whose command line contains pattern as a plain
// substring. The calling process and its ancestors are excluded so that a
// pattern like "voicectl" cannot match the tool itself.
func Match(pattern string) []int {
	if pattern == "" {
		return nil
	}
	self := os.Getpid()
	parent := os.Getppid()

	var out []int
	for _, pid := range List() {
		if pid == self || pid == parent {
			continue
		}
		cl := Cmdline(pid)
		if cl == "" {
			continue
		}
		if strings.Contains(cl, pattern) {
			out = append(out, pid)
		}
	}
	return out
}
