package profiler

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
)

const memPollInterval = 50 * time.Millisecond

// memWatcher polls the target process's resident set size while it runs
// and remembers the peak. The peak supplements memory-mode reports with a
// whole-process figure the per-line deltas cannot provide.
type memWatcher struct {
	proc   *process.Process
	logger zerolog.Logger
	stop   chan struct{}
	done   chan struct{}
	peak   uint64
}

func newMemWatcher(pid int, logger zerolog.Logger) *memWatcher {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		logger.Debug().Err(err).Int("pid", pid).Msg("cannot watch process memory")
		return nil
	}
	w := &memWatcher{
		proc:   proc,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *memWatcher) loop() {
	defer close(w.done)

	// Sample immediately so short-lived targets still report a peak.
	w.poll()

	ticker := time.NewTicker(memPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if !w.poll() {
				// The process is gone; keep the peak observed so far.
				return
			}
		}
	}
}

func (w *memWatcher) poll() bool {
	info, err := w.proc.MemoryInfo()
	if err != nil {
		return false
	}
	if info.RSS > w.peak {
		w.peak = info.RSS
	}
	return true
}

// stopAndPeak halts polling and returns the peak RSS observed, in bytes.
// Safe to call on a nil watcher.
func (w *memWatcher) stopAndPeak() uint64 {
	if w == nil {
		return 0
	}
	close(w.stop)
	<-w.done
	return w.peak
}
