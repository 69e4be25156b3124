package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pylens-io/pylens/internal/analysis"
	"github.com/pylens-io/pylens/internal/profiler/flamegraph"
)

// writeJSON pretty-prints a value for the report stream.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exportFlamegraph writes the first report carrying samples in collapsed
// format. Only multithreaded function runs collect samples.
func exportFlamegraph(reports []*analysis.Report, path string) error {
	for _, rep := range reports {
		prof := rep.FlameProfile()
		if prof == nil {
			continue
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create flame-graph file: %w", err)
		}
		if err := flamegraph.Encode(prof, f); err != nil {
			f.Close() // nolint:errcheck
			return fmt.Errorf("write flame-graph file: %w", err)
		}
		return f.Close()
	}
	return fmt.Errorf("no samples collected; flame-graph export needs --multithreaded function mode")
}

// exportCallTree writes the first function report's indented call tree.
func exportCallTree(reports []*analysis.Report, path string) error {
	for _, rep := range reports {
		if rep.Functions == nil {
			continue
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create call-tree file: %w", err)
		}
		if err := rep.Functions.WriteCallTree(f); err != nil {
			f.Close() // nolint:errcheck
			return fmt.Errorf("write call-tree file: %w", err)
		}
		return f.Close()
	}
	return fmt.Errorf("call-tree export needs a function-mode report")
}
