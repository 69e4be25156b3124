package flamegraph

import (
	"github.com/google/pprof/profile"
)

// ToPProf converts a collapsed profile into a pprof profile with a single
// "samples/count" value type, for consumption by pprof-based tooling.
// Locations are deduplicated by frame name; pprof wants leaf-first stacks,
// so each stack is reversed on the way in.
func ToPProf(p *Profile) *profile.Profile {
	out := &profile.Profile{
		SampleType: []*profile.ValueType{{
			Type: "samples",
			Unit: "count",
		}},
		Sample: make([]*profile.Sample, 0, len(p.Samples)),
	}

	locations := make(map[string]*profile.Location)
	for _, sample := range p.Samples {
		ps := &profile.Sample{Value: []int64{sample.Value}}
		for i := len(sample.Stack) - 1; i >= 0; i-- {
			frame := sample.Stack[i]
			loc, ok := locations[frame]
			if !ok {
				fn := &profile.Function{
					ID:   uint64(len(out.Function)) + 1,
					Name: frame,
				}
				loc = &profile.Location{
					ID:   uint64(len(out.Location)) + 1,
					Line: []profile.Line{{Function: fn}},
				}
				out.Function = append(out.Function, fn)
				out.Location = append(out.Location, loc)
				locations[frame] = loc
			}
			ps.Location = append(ps.Location, loc)
		}
		out.Sample = append(out.Sample, ps)
	}

	return out
}
