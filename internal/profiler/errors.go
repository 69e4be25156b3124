package profiler

import "fmt"

// LoadError indicates the target script could not be located or loaded.
// It is non-fatal to the process; the caller surfaces it as a result-level
// error.
type LoadError struct {
	Script string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Script, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExecutionError indicates the target script raised during the instrumented
// run. Partial statistics gathered before the failure are discarded; the
// run is all-or-nothing.
type ExecutionError struct {
	Script  string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %s failed: %s", e.Script, e.Message)
}
