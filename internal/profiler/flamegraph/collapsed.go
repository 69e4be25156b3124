// Package flamegraph holds the data side of flame-graph rendering: the
// collapsed ("folded") stack format consumed by external renderers, an
// explicit frequency tree, and pprof interop. Rectangle width in a
// rendered graph is proportional to a stack's sample frequency.
package flamegraph

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is one unique stack with its occurrence count. Frames run from
// the root to the leaf.
type Sample struct {
	Stack []string
	Value int64
}

// Profile is a set of collapsed samples.
type Profile struct {
	Samples []Sample
}

// Fold aggregates raw sample lines (semicolon-joined frame lists, as
// produced by the sampling pool) into a Profile by exact-string counting.
// The first occurrence of each unique stack fixes its output position.
func Fold(raw []string) *Profile {
	counts := make(map[string]int64, len(raw))
	order := make([]string, 0, len(raw))
	for _, line := range raw {
		if line == "" {
			continue
		}
		if _, seen := counts[line]; !seen {
			order = append(order, line)
		}
		counts[line]++
	}

	p := &Profile{Samples: make([]Sample, 0, len(order))}
	for _, line := range order {
		p.Samples = append(p.Samples, Sample{
			Stack: strings.Split(line, ";"),
			Value: counts[line],
		})
	}
	return p
}

// Decode reads the line-oriented collapsed format: one line per unique
// stack, "frame1;frame2;...;frameN <count>".
func Decode(r io.Reader) (*Profile, error) {
	res := &Profile{Samples: make([]Sample, 0)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, errors.New("flamegraph: malformed collapsed line")
		}
		count, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("flamegraph: malformed count: %w", err)
		}
		res.Samples = append(res.Samples, Sample{
			Stack: strings.Split(line[:idx], ";"),
			Value: count,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return res, nil
}

// Encode writes the collapsed format. Per-stack counts survive an
// Encode/Decode round trip exactly.
func Encode(p *Profile, w io.Writer) error {
	for _, sample := range p.Samples {
		stack := strings.Join(sample.Stack, ";")
		if _, err := fmt.Fprintf(w, "%s %d\n", stack, sample.Value); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal decodes a collapsed profile from a byte slice.
func Unmarshal(buf []byte) (*Profile, error) {
	return Decode(bytes.NewReader(buf))
}

// Marshal encodes a collapsed profile to a byte slice.
func Marshal(p *Profile) ([]byte, error) {
	var buf bytes.Buffer
	err := Encode(p, &buf)
	return buf.Bytes(), err
}
