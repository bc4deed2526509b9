// Package logtail reads bounded tails of service log files.
package logtail

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// Lines returns up to tailLines lines from the end of path, reading at most
// maxBytes from the file.
func Lines(path string, tailLines int, maxBytes int64) ([]string, error) {
	if path == "" {
		return nil, errors.New("missing path")
	}
	if tailLines <= 0 {
		tailLines = 20
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	size := info.Size()
	start := int64(0)
	if size > maxBytes {
		start = size - maxBytes
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek")
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	if start > 0 {
		if i := bytes.IndexByte(b, '\n'); i >= 0 && i+1 < len(b) {
			b = b[i+1:]
		}
	}

	lines := strings.Split(string(b), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > tailLines {
		lines = append([]string{}, lines[len(lines)-tailLines:]...)
	}
	return lines, nil
}

// ParseSince parses a user-supplied timestamp ("2024-01-02", "Jan 2 15:04",
// an RFC3339 stamp, ...) using best-effort format detection.
func ParseSince(s string) (time.Time, error) {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse --since %q", s)
	}
	return t, nil
}

// FilterSince drops lines whose leading timestamp parses to before since.
// Lines with no recognizable timestamp are kept once a newer line has been
// seen (continuation output belongs to the entry above it) and dropped
// before that.
func FilterSince(lines []string, since time.Time) []string {
	var out []string
	passed := false
	for _, line := range lines {
		ts, ok := leadingTimestamp(line)
		if !ok {
			if passed {
				out = append(out, line)
			}
			continue
		}
		if ts.Before(since) {
			passed = false
			continue
		}
		passed = true
		out = append(out, line)
	}
	return out
}

// leadingTimestamp tries to parse a timestamp from the first one or two
// whitespace-separated fields of the line.
func leadingTimestamp(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}

	candidates := []string{fields[0]}
	if len(fields) >= 2 {
		candidates = append(candidates, fields[0]+" "+fields[1])
	}
	// Prefer the longer candidate so "2024-01-02 15:04:05" beats the bare date.
	for i := len(candidates) - 1; i >= 0; i-- {
		c := strings.Trim(candidates[i], "[]")
		if len(c) < 8 {
			continue
		}
		if t, err := dateparse.ParseAny(c); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
