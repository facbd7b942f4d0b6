package model

import "errors"

// Sentinel kinds for the pipeline error taxonomy. Components wrap these with
// call-site detail; callers classify with errors.Is.
var (
	// Ingestion failures.
	ErrUnsupportedFormat = errors.New("unsupported container format")
	ErrDecodeFailure     = errors.New("clip decode failed")
	ErrEmptyClip         = errors.New("clip contained no readable frames")

	// Triage exhausted its retry budget. Distinct from a negative verdict,
	// which is not an error.
	ErrTriageUnavailable = errors.New("view triage unavailable")

	// Quantifier returned a value outside [0,100].
	ErrInvalidModelOutput = errors.New("invalid model output")

	// Reconciler guards.
	ErrEstimateAlreadySet = errors.New("blind estimate already set")
	ErrEstimateTooLate    = errors.New("blind estimate too late")
	ErrEstimateOutOfRange = errors.New("blind estimate out of range")
	ErrMissingInputs      = errors.New("missing inputs for delta")

	// Transient external failure, retried locally before escalating.
	ErrTransientExternal = errors.New("transient external failure")

	// Owner canceled the submission before a terminal state.
	ErrCanceled = errors.New("submission canceled")
)

// Kind names for diagnostics, stored on failed records and surfaced to
// callers verbatim.
const (
	KindUnsupportedFormat  = "UnsupportedFormat"
	KindDecodeFailure      = "DecodeFailure"
	KindEmptyClip          = "EmptyClip"
	KindTriageUnavailable  = "TriageUnavailable"
	KindInvalidModelOutput = "InvalidModelOutput"
	KindTransientExternal  = "TransientExternalFailure"
	KindCanceled           = "Canceled"
	KindInternal           = "Internal"
)

// ErrorKind classifies err into its taxonomy kind name. Unrecognized errors
// map to KindInternal rather than being silently downgraded to a blank kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrDecodeFailure):
		return KindDecodeFailure
	case errors.Is(err, ErrEmptyClip):
		return KindEmptyClip
	case errors.Is(err, ErrTriageUnavailable):
		return KindTriageUnavailable
	case errors.Is(err, ErrInvalidModelOutput):
		return KindInvalidModelOutput
	case errors.Is(err, ErrTransientExternal):
		return KindTransientExternal
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
