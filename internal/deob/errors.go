package deob

import "errors"

// Sentinel errors for the deob package.
var (
	// ErrUnknownTarget indicates a target id that is not in the registry.
	// Fatal to the run.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrPatternMismatch indicates a probe expected one shape and found
	// another. Local; the candidate is skipped.
	ErrPatternMismatch = errors.New("pattern mismatch")

	// ErrDetection indicates a target's detection probe failed. Local to the
	// registry; the target is omitted from the detection list.
	ErrDetection = errors.New("detection failed")
)
