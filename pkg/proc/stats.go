package proc

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Stats contains process statistics read from /proc, shown by the status
// command and the watch dashboard.
type Stats struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"` // CPU usage as percentage (0-100+)
	MemoryMB   int64   `json:"memory_mb"`   // Resident memory in megabytes
	State      string  `json:"state"`       // Process state (R, S, D, Z, T, etc.)
	Threads    int     `json:"threads"`     // Number of threads
}

// procStat holds parsed /proc/[pid]/stat fields needed for CPU calculation.
type procStat struct {
	utime     uint64 // User mode jiffies
	stime     uint64 // Kernel mode jiffies
	startTime uint64 // Start time in jiffies since boot
	state     byte   // Process state
	threads   int    // Number of threads
	rss       int64  // Resident set size in pages
}

// cpuSnapshot stores timing for CPU percentage calculation.
type cpuSnapshot struct {
	utime     uint64
	stime     uint64
	timestamp time.Time
}

// CPUTracker tracks CPU usage across multiple samples.
type CPUTracker struct {
	snapshots map[int]cpuSnapshot
}

// NewCPUTracker creates a new CPU usage tracker.
func NewCPUTracker() *CPUTracker {
	return &CPUTracker{
		snapshots: make(map[int]cpuSnapshot),
	}
}

// ReadStats reads process statistics for a single PID.
// If tracker is non-nil, it's used to calculate CPU percentage between calls.
func ReadStats(pid int, tracker *CPUTracker) (*Stats, error) {
	if pid <= 0 {
		return nil, errors.New("invalid PID")
	}

	ps, err := readProcStat(pid)
	if err != nil {
		return nil, errors.Wrap(err, "read /proc/stat")
	}

	pageSize := int64(os.Getpagesize())
	memMB := ps.rss * pageSize / (1024 * 1024)

	stats := &Stats{
		PID:      pid,
		MemoryMB: memMB,
		State:    string(ps.state),
		Threads:  ps.threads,
	}

	if tracker != nil {
		now := time.Now()
		totalTime := ps.utime + ps.stime

		if prev, ok := tracker.snapshots[pid]; ok {
			elapsed := now.Sub(prev.timestamp).Seconds()
			if elapsed > 0 {
				prevTotal := prev.utime + prev.stime
				cpuDelta := float64(totalTime - prevTotal)
				// Convert jiffies to seconds (assuming 100 Hz, standard on Linux)
				cpuSeconds := cpuDelta / 100.0
				stats.CPUPercent = (cpuSeconds / elapsed) * 100.0
			}
		}

		tracker.snapshots[pid] = cpuSnapshot{
			utime:     ps.utime,
			stime:     ps.stime,
			timestamp: now,
		}
	}

	return stats, nil
}

// readProcStat parses /proc/[pid]/stat.
func readProcStat(pid int) (*procStat, error) {
	path := filepath.Join("/proc", strconv.Itoa(pid), "stat")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read stat file")
	}

	// The comm field can contain spaces and parentheses, so parse from the
	// last ')' onward.
	content := string(data)
	closeParen := strings.LastIndex(content, ")")
	if closeParen < 0 {
		return nil, errors.New("malformed stat file: no closing paren")
	}

	rest := strings.TrimSpace(content[closeParen+1:])
	fields := strings.Fields(rest)
	if len(fields) < 22 {
		return nil, errors.Errorf("malformed stat file: expected 22+ fields, got %d", len(fields))
	}

	// Field indices (0-based after comm):
	// 0: state, 11: utime, 12: stime, 17: num_threads, 19: starttime, 21: rss

	ps := &procStat{
		state: fields[0][0],
	}

	var parseErr error

	ps.utime, parseErr = strconv.ParseUint(fields[11], 10, 64)
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parse utime")
	}

	ps.stime, parseErr = strconv.ParseUint(fields[12], 10, 64)
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parse stime")
	}

	threads, parseErr := strconv.Atoi(fields[17])
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parse num_threads")
	}
	ps.threads = threads

	ps.startTime, parseErr = strconv.ParseUint(fields[19], 10, 64)
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parse starttime")
	}

	rss, parseErr := strconv.ParseInt(fields[21], 10, 64)
	if parseErr != nil {
		return nil, errors.Wrap(parseErr, "parse rss")
	}
	ps.rss = rss

	return ps, nil
}

// StartTime returns when a process started based on /proc/[pid]/stat.
func StartTime(pid int) (time.Time, error) {
	ps, err := readProcStat(pid)
	if err != nil {
		return time.Time{}, err
	}

	bootTime, err := bootTime()
	if err != nil {
		return time.Time{}, err
	}

	// starttime is in clock ticks since boot, assuming 100 Hz.
	startSeconds := int64(ps.startTime) / 100
	return bootTime.Add(time.Duration(startSeconds) * time.Second), nil
}

func bootTime() (time.Time, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, errors.Wrap(err, "open /proc/stat")
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "btime ") {
			parts := strings.Fields(line)
			if len(parts) < 2 {
				continue
			}
			btime, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return time.Time{}, errors.Wrap(err, "parse btime")
			}
			return time.Unix(btime, 0), nil
		}
	}

	return time.Time{}, errors.New("btime not found in /proc/stat")
}
