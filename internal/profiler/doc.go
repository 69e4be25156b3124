// Package profiler runs a target Python script under an embedded
// instrumentation harness and collects raw statistics: per-function call
// counts and times, per-line hit counts, or per-line memory deltas.
//
// The harness speaks a line-oriented protocol on a dedicated pipe (fd 3
// in the child), leaving stdout to the target script:
//
//	RESULT <json>          final payload for the requested mode
//	ERROR <message>        the target raised; the run produced no stats
//	SAMPLE <tid> <frames>  one thread's stack, in reply to an "S" request
//	ENDSAMPLE              terminates a snapshot reply block
//
// Raw statistics mirror the deterministic call-count profiler's table:
// one entry per code location with primitive/total call counts, total and
// cumulative time, and a caller map. Aggregation of this table lives in
// the aggregate subpackage.
package profiler
