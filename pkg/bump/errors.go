package bump

import "errors"

// Error definitions for the bump workflow.
var (
	errNoEdits        = errors.New("no file edits to commit")
	errForkNotReady   = errors.New("fork did not become ready")
	errStanzaNotFound = errors.New("no url or version stanza found in formula")
	errNoChanges      = errors.New("edit produced no changes to the formula")
	errDuplicatePR    = errors.New("a pull request for this file already exists")

	// ErrNoEdits is returned when Run is called with an empty edit list.
	ErrNoEdits = errNoEdits
	// ErrForkNotReady is returned when the fork is still not visible after
	// the polling budget is exhausted.
	ErrForkNotReady = errForkNotReady
	// ErrStanzaNotFound is returned when the formula file contains neither a
	// url nor a version stanza to rewrite.
	ErrStanzaNotFound = errStanzaNotFound
	// ErrNoChanges is returned when the requested edit leaves the formula
	// byte-identical.
	ErrNoChanges = errNoChanges
	// ErrDuplicatePullRequest is returned by the duplicate guard in strict
	// mode, or when the user declines to proceed.
	ErrDuplicatePullRequest = errDuplicatePR
)
