package entity

// OutcomeClass is the user-visible class of a finished dispatch
type OutcomeClass string

const (
	OutcomeSuccess        OutcomeClass = "success"
	OutcomePartial        OutcomeClass = "partial"
	OutcomeFailure        OutcomeClass = "failure"
	OutcomeRejected       OutcomeClass = "rejected"
	OutcomeAwaitingChoice OutcomeClass = "awaiting_choice"
	OutcomeNoSelection    OutcomeClass = "no_selection"
)

// Outcome summarizes what one workflow step did for the user.
type Outcome struct {
	RequestID string
	Class     OutcomeClass
	Delivered int
	// Used lists providers whose images were delivered
	Used []string
	// Failed lists providers whose failure was not masked by a fallback
	Failed []string
	// Masked lists providers that failed before a fallback succeeded
	Masked []string
	Err    error
}
