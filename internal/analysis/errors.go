package analysis

import (
	"errors"

	"github.com/pylens-io/pylens/internal/profiler"
	"github.com/pylens-io/pylens/internal/profiler/aggregate"
	"github.com/pylens-io/pylens/internal/rules"
)

// Error kinds surfaced across the external interface. An aborted analysis
// always yields a structured error payload, never a panic or a partial
// success report.
const (
	KindLoad        = "load"
	KindExecution   = "execution"
	KindParse       = "parse"
	KindRule        = "rule"
	KindAggregation = "aggregation"
	KindInternal    = "internal"
)

// ErrorPayload is the JSON error object returned for failed analyses.
type ErrorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewErrorPayload classifies an error into the taxonomy and wraps it for
// presentation.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Error: err.Error(), Kind: Classify(err)}
}

// Classify maps an error to its taxonomy kind.
func Classify(err error) string {
	var (
		loadErr  *profiler.LoadError
		execErr  *profiler.ExecutionError
		aggErr   *aggregate.Error
		parseErr *rules.ParseError
		ruleErr  *rules.RegistrationError
	)
	switch {
	case errors.As(err, &loadErr):
		return KindLoad
	case errors.As(err, &execErr):
		return KindExecution
	case errors.As(err, &aggErr):
		return KindAggregation
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &ruleErr):
		return KindRule
	default:
		return KindInternal
	}
}
