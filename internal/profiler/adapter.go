package profiler

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/pylens-io/pylens/internal/profiler/sampling"
)

//go:embed harness.py
var harnessSource []byte

// Mode selects what the instrumented run collects.
type Mode string

const (
	ModeFunction Mode = "function"
	ModeLine     Mode = "line"
	ModeMemory   Mode = "memory"
)

// Options configures an Adapter.
type Options struct {
	// Python is the interpreter used to run the harness (default python3).
	Python string
	// Timeout bounds the whole instrumented run (default 5m).
	Timeout time.Duration
	// Multithreaded enables interval stack sampling alongside function mode.
	Multithreaded bool
	// FineGrained enables full call/return event tracing in function mode.
	// Mutually exclusive with Multithreaded.
	FineGrained bool
	// SampleInterval is the spacing between stack snapshots (default 1ms).
	SampleInterval time.Duration
	// JoinTimeout bounds waiting for the sampler loop to stop (default 2s).
	JoinTimeout time.Duration
}

// RunResult is the raw output of one instrumented run. Only the fields for
// the requested mode are populated.
type RunResult struct {
	Stats      *RawStats
	CallStacks []StackCapture
	Lines      []LineRecord
	Memory     []MemoryRecord
	Samples    []string
	PeakRSS    uint64
}

// Adapter executes a target script under the embedded harness. Each
// analysis run constructs a fresh Adapter; it holds no state across runs.
type Adapter struct {
	logger zerolog.Logger
	opts   Options
}

// NewAdapter creates an adapter with defaults applied.
func NewAdapter(logger zerolog.Logger, opts Options) *Adapter {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = sampling.DefaultInterval
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 2 * time.Second
	}
	return &Adapter{
		logger: logger.With().Str("component", "adapter").Logger(),
		opts:   opts,
	}
}

// Run executes the target script once under instrumentation for the given
// mode. The target runs with full side effects; this is the tool's
// operating model, not a security boundary.
func (a *Adapter) Run(ctx context.Context, script string, mode Mode) (*RunResult, error) {
	if a.opts.Multithreaded && a.opts.FineGrained {
		return nil, errors.New("multithreaded sampling and fine-grained tracing are mutually exclusive")
	}

	info, err := os.Stat(script)
	if err != nil {
		return nil, &LoadError{Script: script, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Script: script, Err: errors.New("is a directory")}
	}

	harnessDir, err := os.MkdirTemp("", "pylens-harness-")
	if err != nil {
		return nil, fmt.Errorf("create harness dir: %w", err)
	}
	defer os.RemoveAll(harnessDir) // nolint:errcheck
	harnessPath := filepath.Join(harnessDir, "harness.py")
	if err := os.WriteFile(harnessPath, harnessSource, 0o600); err != nil {
		return nil, fmt.Errorf("write harness: %w", err)
	}

	args := []string{"-u", harnessPath, script, string(mode)}
	if a.opts.FineGrained {
		args = append(args, "--fine-grained")
	}
	if a.opts.Multithreaded {
		args = append(args, "--serve-samples")
	}

	runCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.opts.Python, args...)
	// The target may fork; put the harness in its own process group so
	// cancellation reaps the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// The target owns stdout; forward its prints to our stderr so they
	// stay visible without touching the report stream.
	cmd.Stdout = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("harness stdin: %w", err)
	}

	// Protocol lines travel on a dedicated pipe (fd 3 in the child), so
	// target output can never spoof a RESULT or ERROR line.
	protoR, protoW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("harness protocol pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{protoW}

	if err := cmd.Start(); err != nil {
		_ = protoR.Close()
		_ = protoW.Close()
		return nil, fmt.Errorf("start %s: %w", a.opts.Python, err)
	}
	// The child holds its own duplicate; ours would keep the read side
	// from ever seeing EOF.
	_ = protoW.Close()
	a.logger.Debug().
		Str("script", script).
		Str("mode", string(mode)).
		Int("pid", cmd.Process.Pid).
		Msg("harness started")

	conn := newHarnessConn(stdin)
	go conn.readLoop(protoR)

	watcher := newMemWatcher(cmd.Process.Pid, a.logger)

	var sampler *sampling.Sampler
	if a.opts.Multithreaded && mode == ModeFunction {
		sampler = sampling.New(conn, a.opts.SampleInterval, a.logger)
		sampler.Start()
	}

	var out harnessOutcome
	var gotOutcome bool
	select {
	case out = <-conn.outcome:
		gotOutcome = true
	case <-conn.eof:
		// Process died without a terminal protocol line.
	case <-runCtx.Done():
	}

	var samples []string
	if sampler != nil {
		samples, err = sampler.Stop(a.opts.JoinTimeout)
		if err != nil {
			a.logger.Warn().Err(err).Msg("sampler did not stop cleanly, discarding samples")
		}
	}
	peak := watcher.stopAndPeak()

	_ = stdin.Close()
	<-conn.eof
	_ = protoR.Close()
	waitErr := cmd.Wait()

	switch {
	case gotOutcome && out.errMsg != "":
		return nil, &ExecutionError{Script: script, Message: out.errMsg}
	case !gotOutcome && runCtx.Err() != nil:
		return nil, &ExecutionError{Script: script, Message: fmt.Sprintf("run aborted: %v", runCtx.Err())}
	case !gotOutcome:
		msg := "harness exited without a result"
		if tail := stderrTail(stderr.String()); tail != "" {
			msg = fmt.Sprintf("%s: %s", msg, tail)
		} else if waitErr != nil {
			msg = fmt.Sprintf("%s: %v", msg, waitErr)
		}
		return nil, &ExecutionError{Script: script, Message: msg}
	}

	result, err := decodePayload(mode, out.payload)
	if err != nil {
		return nil, fmt.Errorf("decode harness payload: %w", err)
	}
	result.Samples = samples
	result.PeakRSS = peak
	return result, nil
}

func decodePayload(mode Mode, payload []byte) (*RunResult, error) {
	switch mode {
	case ModeFunction:
		var body struct {
			Entries    []Entry        `json:"entries"`
			CallStacks []StackCapture `json:"call_stacks"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, err
		}
		return &RunResult{
			Stats:      &RawStats{Entries: body.Entries},
			CallStacks: body.CallStacks,
		}, nil
	case ModeLine:
		var body struct {
			Lines []LineRecord `json:"lines"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, err
		}
		return &RunResult{Lines: body.Lines}, nil
	case ModeMemory:
		var body struct {
			Memory []MemoryRecord `json:"memory"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, err
		}
		return &RunResult{Memory: body.Memory}, nil
	default:
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
}

// stderrTail returns the last non-empty stderr line, which usually carries
// the interpreter's own failure reason when the harness never started.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
