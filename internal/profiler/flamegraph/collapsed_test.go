package flamegraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldCountsExactStacks(t *testing.T) {
	raw := []string{
		"Thread-1;main;work",
		"Thread-1;main;work",
		"Thread-1;main;idle",
		"",
		"Thread-2;main;work",
		"Thread-1;main;work",
	}

	p := Fold(raw)
	require.Len(t, p.Samples, 3)

	// First occurrence fixes position.
	assert.Equal(t, []string{"Thread-1", "main", "work"}, p.Samples[0].Stack)
	assert.Equal(t, int64(3), p.Samples[0].Value)
	assert.Equal(t, []string{"Thread-1", "main", "idle"}, p.Samples[1].Stack)
	assert.Equal(t, int64(1), p.Samples[1].Value)
	assert.Equal(t, []string{"Thread-2", "main", "work"}, p.Samples[2].Stack)
	assert.Equal(t, int64(1), p.Samples[2].Value)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Profile{Samples: []Sample{
		{Stack: []string{"main", "work", "inner"}, Value: 42},
		{Stack: []string{"main"}, Value: 1},
		{Stack: []string{"main", "sleep(time.py:10)"}, Value: 7},
	}}

	var buf bytes.Buffer
	require.NoError(t, Encode(p, &buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Samples, got.Samples)
}

func TestDecodeFormat(t *testing.T) {
	in := "main;work 5\nmain;idle 2\n"
	p, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, p.Samples, 2)
	assert.Equal(t, Sample{Stack: []string{"main", "work"}, Value: 5}, p.Samples[0])
	assert.Equal(t, Sample{Stack: []string{"main", "idle"}, Value: 2}, p.Samples[1])
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "no count", in: "main;work\n"},
		{name: "bad count", in: "main;work five\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	p := &Profile{Samples: []Sample{{Stack: []string{"a", "b"}, Value: 3}}}

	buf, err := Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, "a;b 3\n", string(buf))

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, p.Samples, got.Samples)
}

func TestTreeAccumulatesAlongPath(t *testing.T) {
	p := &Profile{Samples: []Sample{
		{Stack: []string{"main", "work", "inner"}, Value: 4},
		{Stack: []string{"main", "work"}, Value: 2},
		{Stack: []string{"main", "idle"}, Value: 1},
	}}

	root := Tree(p)
	assert.Equal(t, int64(7), root.Count)

	main := root.Children["main"]
	require.NotNil(t, main)
	assert.Equal(t, int64(7), main.Count)

	work := main.Children["work"]
	require.NotNil(t, work)
	assert.Equal(t, int64(6), work.Count)
	assert.Equal(t, int64(4), work.Children["inner"].Count)
	assert.Equal(t, int64(1), main.Children["idle"].Count)

	// Parent count covers its children.
	for _, c := range main.SortedChildren() {
		assert.LessOrEqual(t, c.Count, main.Count)
	}
}

func TestSortedChildrenOrder(t *testing.T) {
	root := NewTree()
	root.Insert([]string{"b"}, 5)
	root.Insert([]string{"a"}, 5)
	root.Insert([]string{"c"}, 9)

	kids := root.SortedChildren()
	require.Len(t, kids, 3)
	assert.Equal(t, "c", kids[0].Name)
	assert.Equal(t, "a", kids[1].Name)
	assert.Equal(t, "b", kids[2].Name)
}

func TestToPProf(t *testing.T) {
	p := &Profile{Samples: []Sample{
		{Stack: []string{"main", "work"}, Value: 3},
		{Stack: []string{"main", "idle"}, Value: 1},
	}}

	prof := ToPProf(p)
	require.Len(t, prof.SampleType, 1)
	assert.Equal(t, "samples", prof.SampleType[0].Type)
	require.Len(t, prof.Sample, 2)

	// Leaf-first ordering and shared location for the common frame.
	first := prof.Sample[0]
	assert.Equal(t, []int64{3}, first.Value)
	require.Len(t, first.Location, 2)
	assert.Equal(t, "work", first.Location[0].Line[0].Function.Name)
	assert.Equal(t, "main", first.Location[1].Line[0].Function.Name)

	second := prof.Sample[1]
	assert.Same(t, first.Location[1], second.Location[1])

	require.NoError(t, prof.CheckValid())
}
