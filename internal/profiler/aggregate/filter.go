package aggregate

import "strings"

// DefaultExclusions lists the name prefixes of synthetic and internal
// frames that would otherwise pollute the function table and call graph:
// builtins, bound-method shims, module-level entry frames, comprehension
// bodies, constructors, and decode helpers.
var DefaultExclusions = []string{
	"<built-in",
	"<method",
	"<module>",
	"<listcomp>",
	"__init__",
	"decode",
	"<",
}

// Filter decides which symbol names survive aggregation. The same filter
// applies to callees, callers, and root detection.
type Filter struct {
	prefixes []string
}

// NewFilter builds a filter from exclusion prefixes. With no arguments it
// uses DefaultExclusions.
func NewFilter(prefixes ...string) Filter {
	if len(prefixes) == 0 {
		prefixes = DefaultExclusions
	}
	return Filter{prefixes: prefixes}
}

// Include reports whether a symbol name survives the filter.
func (f Filter) Include(name string) bool {
	for _, p := range f.prefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}
