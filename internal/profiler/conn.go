package profiler

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pylens-io/pylens/internal/profiler/sampling"
)

const (
	maxProtocolLine = 64 << 20 // raw stats for large targets arrive as one RESULT line
	snapshotTimeout = 250 * time.Millisecond
)

var errHarnessClosed = errors.New("harness output closed")

// harnessOutcome is the terminal protocol message of one run.
type harnessOutcome struct {
	payload []byte // RESULT json, nil if the run failed
	errMsg  string // ERROR message, empty on success
}

// harnessConn multiplexes the harness stdout protocol: the final RESULT or
// ERROR line and any SAMPLE reply blocks requested through stdin.
// It implements sampling.Snapshotter for the multithreaded strategy.
type harnessConn struct {
	stdin io.Writer

	mu       sync.Mutex // serializes snapshot request/response pairs
	sampleCh chan []sampling.ThreadStack
	outcome  chan harnessOutcome
	eof      chan struct{}
}

func newHarnessConn(stdin io.Writer) *harnessConn {
	return &harnessConn{
		stdin:    stdin,
		sampleCh: make(chan []sampling.ThreadStack),
		outcome:  make(chan harnessOutcome, 1),
		eof:      make(chan struct{}),
	}
}

// readLoop consumes the harness protocol stream until EOF, dispatching
// protocol lines. Only the first terminal line (RESULT or ERROR) counts;
// later ones are dropped so the loop can never block on the outcome
// channel and always reaches EOF. Lines that match no protocol verb are
// ignored.
func (c *harnessConn) readLoop(r io.Reader) {
	defer close(c.eof)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxProtocolLine)

	var sawOutcome bool
	var block []sampling.ThreadStack
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "RESULT "):
			if sawOutcome {
				continue
			}
			sawOutcome = true
			c.outcome <- harnessOutcome{payload: []byte(line[len("RESULT "):])}
		case strings.HasPrefix(line, "ERROR "):
			if sawOutcome {
				continue
			}
			sawOutcome = true
			c.outcome <- harnessOutcome{errMsg: line[len("ERROR "):]}
		case strings.HasPrefix(line, "SAMPLE "):
			if st, ok := parseSampleLine(line[len("SAMPLE "):]); ok {
				block = append(block, st)
			}
		case line == "ENDSAMPLE":
			select {
			case c.sampleCh <- block:
			default:
				// The requester gave up waiting; drop the block.
			}
			block = nil
		}
	}
}

// Snapshot asks the harness for a dump of every live thread's stack.
func (c *harnessConn) Snapshot() ([]sampling.ThreadStack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.eof:
		return nil, errHarnessClosed
	default:
	}

	if _, err := io.WriteString(c.stdin, "S\n"); err != nil {
		return nil, err
	}

	select {
	case stacks := <-c.sampleCh:
		return stacks, nil
	case <-c.eof:
		return nil, errHarnessClosed
	case <-time.After(snapshotTimeout):
		return nil, errors.New("snapshot request timed out")
	}
}

// parseSampleLine parses "<tid> name|file|line;name|file|line;...".
func parseSampleLine(s string) (sampling.ThreadStack, bool) {
	tid, rest, found := strings.Cut(s, " ")
	if !found || tid == "" {
		return sampling.ThreadStack{}, false
	}
	st := sampling.ThreadStack{ThreadID: tid}
	for _, raw := range strings.Split(rest, ";") {
		parts := strings.SplitN(raw, "|", 3)
		if len(parts) != 3 {
			continue
		}
		line, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		st.Frames = append(st.Frames, sampling.Frame{
			Function: parts[0],
			File:     parts[1],
			Line:     line,
		})
	}
	return st, len(st.Frames) > 0
}
