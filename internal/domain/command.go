package domain

// Command is a deploy directive extracted from comment text.
// Derived deterministically and never persisted; recomputed each time.
type Command struct {
	Name   string // requested token name
	Ticker string // uppercased, 3-10 alphanumeric
}

// RejectReason classifies why a comment did not yield a valid Command.
type RejectReason string

const (
	// RejectNone means the comment parsed to a valid Command.
	RejectNone RejectReason = ""

	// RejectNotMentioned means the text does not mention the target handle.
	// Not counted as a processing attempt for notification purposes.
	RejectNotMentioned RejectReason = "not-mentioned"

	// RejectNoCommand means the handle was mentioned but no name/ticker
	// pair could be extracted.
	RejectNoCommand RejectReason = "no-command"

	// RejectInvalidTicker means a ticker token was found but failed
	// validation (3-10 alphanumeric characters).
	RejectInvalidTicker RejectReason = "invalid-ticker"
)
