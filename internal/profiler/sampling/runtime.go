package sampling

import (
	"bytes"
	"runtime"
	"strconv"
	"strings"
)

const stackBufSize = 1 << 20

// RuntimeSnapshotter samples the goroutines of the current process by
// parsing the runtime's all-goroutine stack dump. It is used for
// self-profiling and as the reference Snapshotter in tests; profiling a
// target script goes through the harness-backed snapshotter instead.
type RuntimeSnapshotter struct{}

// Snapshot captures every goroutine's stack except the calling one.
func (RuntimeSnapshotter) Snapshot() ([]ThreadStack, error) {
	self := currentGoroutineID()

	buf := make([]byte, stackBufSize)
	n := runtime.Stack(buf, true)
	stacks := parseGoroutineDump(buf[:n])

	out := stacks[:0]
	for _, st := range stacks {
		if st.ThreadID == self {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// currentGoroutineID extracts the goroutine id from a single-goroutine
// stack header ("goroutine 12 [running]:").
func currentGoroutineID() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return ""
	}
	return string(fields[1])
}

// parseGoroutineDump parses the output of runtime.Stack(buf, true) into
// per-goroutine stacks. Frames the parser cannot make sense of are skipped
// rather than failing the snapshot.
func parseGoroutineDump(dump []byte) []ThreadStack {
	var stacks []ThreadStack

	for _, block := range strings.Split(string(dump), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 || !strings.HasPrefix(lines[0], "goroutine ") {
			continue
		}
		header := strings.Fields(lines[0])
		if len(header) < 2 {
			continue
		}

		st := ThreadStack{ThreadID: header[1]}
		// Function and file:line alternate after the header. Frames arrive
		// innermost first; reverse so the root comes first in the sample.
		var frames []Frame
		for i := 1; i+1 < len(lines); i += 2 {
			fn := strings.TrimSpace(lines[i])
			if idx := strings.LastIndexByte(fn, '('); idx > 0 {
				fn = fn[:idx]
			}
			file, line := parseFileLine(strings.TrimSpace(lines[i+1]))
			if fn == "" || file == "" {
				continue
			}
			frames = append(frames, Frame{Function: fn, File: file, Line: line})
		}
		for i := len(frames) - 1; i >= 0; i-- {
			st.Frames = append(st.Frames, frames[i])
		}
		stacks = append(stacks, st)
	}
	return stacks
}

// parseFileLine splits "/path/file.go:42 +0x1b" into path and line.
func parseFileLine(s string) (string, int) {
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		s = s[:idx]
	}
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return s, 0
	}
	line, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return s[:idx], 0
	}
	return s[:idx], line
}
