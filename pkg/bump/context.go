package bump

import (
	"io/fs"
)

// FileEdit describes one file change the workflow will commit: the path, the
// pre-edit contents kept for rollback, the new contents, and the commit
// message. OldContents is written back verbatim if the workflow fails after
// the edit was applied.
type FileEdit struct {
	Path        string
	OldContents string
	NewContents string
	Message     string

	// Set when the edit is applied to disk.
	applied bool
	existed bool
	mode    fs.FileMode
}

// Context is the workflow state for one bump: the tap being targeted, the
// branch names, the accumulated file edits, and the fork coordinates filled
// in as the workflow progresses. It is created per run and discarded at the
// end; only AddEdit mutates it from the outside.
type Context struct {
	// TapOwner/TapRepo identify the upstream tap repository.
	TapOwner string
	TapRepo  string

	// SourceBranch is the bump branch; TargetBranch is the PR base.
	SourceBranch string
	TargetBranch string

	// Title and Body of the pull request. When empty they are derived from
	// the first edit's commit message.
	Title string
	Body  string

	// Filled in by the fork step.
	ForkOwner string
	ForkRepo  string
	ForkURL   string

	edits []*FileEdit
}

// AddEdit appends a file edit to the workflow.
func (c *Context) AddEdit(edit *FileEdit) {
	c.edits = append(c.edits, edit)
}

// Edits returns the workflow's file edits in commit order.
func (c *Context) Edits() []*FileEdit {
	return c.edits
}

// Tap returns the upstream repository as "owner/repo".
func (c *Context) Tap() string {
	return c.TapOwner + "/" + c.TapRepo
}
