// Package consumer implements the validating consumers that apply inbound
// domain events to local denormalized state. Every apply is a last-write-wins
// overwrite, so duplicate and out-of-order deliveries converge.
package consumer

// Status classifies the result of processing one message. Call sites decide
// retry vs. drop from the status instead of from caught exceptions.
type Status int

const (
	// StatusApplied - the local state was updated and committed.
	StatusApplied Status = iota
	// StatusNothingToApply - no matching rows existed; a benign, expected case.
	StatusNothingToApply
	// StatusRejected - the message failed shape validation; retrying cannot
	// help, the message is dead-lettered and acknowledged.
	StatusRejected
	// StatusFailed - a transient error (db down, commit failure); the message
	// is left unacknowledged so the broker redelivers it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusNothingToApply:
		return "nothing_to_apply"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result of one handler invocation.
type Outcome struct {
	Status Status
	Err    error
}

func Applied() Outcome {
	return Outcome{Status: StatusApplied}
}

func NothingToApply() Outcome {
	return Outcome{Status: StatusNothingToApply}
}

func Rejected(err error) Outcome {
	return Outcome{Status: StatusRejected, Err: err}
}

func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}
