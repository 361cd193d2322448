package orchestrator

import "fmt"

// TransportError is a network or API failure. The affected work is
// retried at the next cycle, never mid-cycle.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a malformed command. Terminal rejection, no retry.
type ValidationError struct {
	CommentID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: comment %s rejected: %s", e.CommentID, e.Reason)
}

// AcquisitionError means the creator's avatar could not be obtained.
// Terminal failure for the comment; the deployer is never invoked.
type AcquisitionError struct {
	Username string
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition: @%s: %v", e.Username, e.Err)
}
func (e *AcquisitionError) Unwrap() error { return e.Err }

// DeploymentError is a failed deploy call. Terminal, reported to the user.
type DeploymentError struct {
	CommentID string
	Err       error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment: comment %s: %v", e.CommentID, e.Err)
}
func (e *DeploymentError) Unwrap() error { return e.Err }

// NotificationError is a failed reply. Logged only; never alters the
// stored outcome.
type NotificationError struct {
	CommentID string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification: comment %s: %v", e.CommentID, e.Err)
}
func (e *NotificationError) Unwrap() error { return e.Err }

// PersistenceError means the store was unavailable. Before the deployer
// has run this is fatal-to-the-item: the comment is left unmarked and
// retried at a later cycle rather than risking double deployment.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
