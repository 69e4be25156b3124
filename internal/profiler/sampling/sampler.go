// Package sampling captures periodic stack snapshots across the threads of
// a running target without instrumenting it. The sampler owns its sample
// buffer until Stop has joined the loop; callers never observe a window
// where the buffer is read and written concurrently.
package sampling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the default wall-clock spacing between snapshots.
const DefaultInterval = time.Millisecond

// ErrJoinTimeout is returned by Stop when the sampling loop does not exit
// within the join timeout. The sample buffer is not released in that case.
var ErrJoinTimeout = errors.New("sampling: loop did not stop within timeout")

// Frame is one stack frame of a sampled thread.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s(%s:%d)", f.Function, f.File, f.Line)
}

// ThreadStack is one thread's captured call stack, outermost frame first.
type ThreadStack struct {
	ThreadID string
	Frames   []Frame
}

// Format renders the stack as a single sample line: a thread identifier
// followed by semicolon-joined frames.
func (s ThreadStack) Format() string {
	var b strings.Builder
	b.WriteString("Thread-")
	b.WriteString(s.ThreadID)
	for _, f := range s.Frames {
		b.WriteByte(';')
		b.WriteString(f.String())
	}
	return b.String()
}

// Snapshotter reads the current stacks of all live threads of the target.
// Implementations must be read-only with respect to the sampled threads:
// they never halt or synchronize with them. A thread that disappears
// mid-snapshot is simply absent from the result.
type Snapshotter interface {
	Snapshot() ([]ThreadStack, error)
}

// Sampler runs a background loop that appends formatted stack samples to
// an internal buffer at a fixed interval.
type Sampler struct {
	snap     Snapshotter
	interval time.Duration
	logger   zerolog.Logger

	samples []string
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// New creates a sampler. A non-positive interval falls back to
// DefaultInterval.
func New(snap Snapshotter, interval time.Duration, logger zerolog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		snap:     snap,
		interval: interval,
		logger:   logger.With().Str("component", "sampler").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling loop. It must be called at most once.
func (s *Sampler) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.loop()
}

func (s *Sampler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			stacks, err := s.snap.Snapshot()
			if err != nil {
				// A failed snapshot loses one sample, nothing more.
				s.logger.Debug().Err(err).Msg("snapshot failed, skipping interval")
				continue
			}
			for _, st := range stacks {
				if len(st.Frames) == 0 {
					continue
				}
				s.samples = append(s.samples, st.Format())
			}
		}
	}
}

// Stop signals the loop to exit and waits up to timeout for it to join.
// On success it releases ownership of the sample buffer to the caller.
// The loop observes the stop signal within one interval.
func (s *Sampler) Stop(timeout time.Duration) ([]string, error) {
	if !s.started {
		return nil, nil
	}
	select {
	case <-s.stop:
		// Already stopped.
	default:
		close(s.stop)
	}

	select {
	case <-s.done:
	case <-time.After(timeout):
		return nil, ErrJoinTimeout
	}

	samples := s.samples
	s.samples = nil
	s.logger.Debug().Int("samples", len(samples)).Msg("sampling stopped")
	return samples, nil
}
