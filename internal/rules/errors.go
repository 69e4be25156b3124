package rules

import "fmt"

// RegistrationError indicates a custom rule's predicate expression did not
// compile. Only the offending rule is dropped; the rest of the rule set is
// unaffected.
type RegistrationError struct {
	Rule       string
	Expression string
	Err        error
}

func (e *RegistrationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("rule %q: invalid predicate %q: %v", e.Rule, e.Expression, e.Err)
	}
	return fmt.Sprintf("invalid predicate %q: %v", e.Expression, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ParseError indicates the target source could not be parsed. Structural
// rule evaluation is skipped; statistics rules still run.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse target source: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
