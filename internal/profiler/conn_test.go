package profiler

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pylens-io/pylens/internal/profiler/sampling"
)

func TestParseSampleLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want sampling.ThreadStack
		ok   bool
	}{
		{
			name: "two frames",
			in:   "140234 main|app.py|3;work|app.py|11",
			want: sampling.ThreadStack{
				ThreadID: "140234",
				Frames: []sampling.Frame{
					{Function: "main", File: "app.py", Line: 3},
					{Function: "work", File: "app.py", Line: 11},
				},
			},
			ok: true,
		},
		{
			name: "skips malformed frames",
			in:   "7 main|app.py|3;broken;also|bad|NaN",
			want: sampling.ThreadStack{
				ThreadID: "7",
				Frames:   []sampling.Frame{{Function: "main", File: "app.py", Line: 3}},
			},
			ok: true,
		},
		{name: "no thread id", in: "main|app.py|3"},
		{name: "only malformed frames", in: "7 broken"},
		{name: "empty", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := parseSampleLine(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, st)
			}
		})
	}
}

func TestReadLoopDispatchesResult(t *testing.T) {
	conn := newHarnessConn(io.Discard)

	out := strings.Join([]string{
		"noise that matches no protocol verb",
		`RESULT {"entries": []}`,
	}, "\n")
	go conn.readLoop(strings.NewReader(out))

	select {
	case got := <-conn.outcome:
		assert.Equal(t, `{"entries": []}`, string(got.payload))
		assert.Empty(t, got.errMsg)
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}
	<-conn.eof
}

func TestReadLoopDispatchesError(t *testing.T) {
	conn := newHarnessConn(io.Discard)
	go conn.readLoop(strings.NewReader("ERROR division by zero\n"))

	select {
	case got := <-conn.outcome:
		assert.Equal(t, "division by zero", got.errMsg)
		assert.Nil(t, got.payload)
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	// Couple the snapshot request to the reply: the fake harness emits a
	// sample block only after it reads the "S" request.
	requested := make(chan struct{})
	stdin := writerFunc(func(p []byte) (int, error) {
		if bytes.Equal(p, []byte("S\n")) {
			close(requested)
		}
		return len(p), nil
	})

	conn := newHarnessConn(stdin)

	pr, pw := io.Pipe()
	go conn.readLoop(pr)
	go func() {
		<-requested
		_, _ = io.WriteString(pw, "SAMPLE 1 main|app.py|3\nSAMPLE 2 run|svc.py|9\nENDSAMPLE\n")
	}()

	stacks, err := conn.Snapshot()
	require.NoError(t, err)
	require.Len(t, stacks, 2)
	assert.Equal(t, "1", stacks[0].ThreadID)
	assert.Equal(t, "2", stacks[1].ThreadID)

	_ = pw.Close()
	<-conn.eof
}

func TestReadLoopKeepsFirstOutcomeOnly(t *testing.T) {
	conn := newHarnessConn(io.Discard)

	in := strings.Join([]string{
		"ERROR first failure",
		"ERROR second failure",
		`RESULT {"entries": []}`,
	}, "\n")
	go conn.readLoop(strings.NewReader(in))

	select {
	case got := <-conn.outcome:
		assert.Equal(t, "first failure", got.errMsg)
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}

	// Extra terminal lines are dropped, so the loop drains to EOF
	// instead of blocking on the outcome channel.
	select {
	case <-conn.eof:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop stalled on extra terminal lines")
	}
}

func TestSnapshotAfterEOF(t *testing.T) {
	conn := newHarnessConn(io.Discard)
	go conn.readLoop(strings.NewReader(""))
	<-conn.eof

	_, err := conn.Snapshot()
	require.ErrorIs(t, err, errHarnessClosed)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
