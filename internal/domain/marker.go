package domain

// Outcome is the terminal outcome recorded for a processed comment.
type Outcome string

const (
	OutcomeSuccess            Outcome = "SUCCESS"
	OutcomeFailed             Outcome = "FAILED"
	OutcomeRejectedNotMention Outcome = "REJECTED_NOT_MENTIONED"
	OutcomeRejectedNoCommand  Outcome = "REJECTED_NO_COMMAND"
	OutcomeRejectedBadTicker  Outcome = "REJECTED_INVALID_TICKER"
)

// OutcomeForReject maps a parser rejection to its marker outcome.
func OutcomeForReject(reason RejectReason) Outcome {
	switch reason {
	case RejectNotMentioned:
		return OutcomeRejectedNotMention
	case RejectInvalidTicker:
		return OutcomeRejectedBadTicker
	default:
		return OutcomeRejectedNoCommand
	}
}

// ProcessedMarker is the idempotency ledger entry for a comment.
// Written exactly once after terminal handling; its presence is the
// sole guard against re-submitting a comment to the deployer.
type ProcessedMarker struct {
	CommentID   string // PRIMARY KEY
	Outcome     Outcome
	ProcessedAt int64 // Unix timestamp in milliseconds
}
