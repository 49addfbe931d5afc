// Package bump drives the version-bump workflow: fork the tap, wait for the
// fork to become ready, create a branch, commit the formula edits, push to
// the fork, and open the pull request. Any failure after a file edit was
// applied rolls the edited files back to their pre-edit contents.
package bump

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/go-github/v69/github"
	"github.com/sgaunet/bullets"

	"github.com/sgaunet/tapbump/internal/logger"
	"github.com/sgaunet/tapbump/pkg/api"
)

// State is the workflow's current position. Transitions run strictly forward
// until PROpened, or jump to RolledBack on failure.
type State int

const (
	StateInit State = iota
	StateForking
	StateAwaitingForkReady
	StateBranchCreated
	StateFilesCommitted
	StatePushed
	StatePROpened
	StateRolledBack
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateForking:
		return "forking"
	case StateAwaitingForkReady:
		return "awaiting-fork-ready"
	case StateBranchCreated:
		return "branch-created"
	case StateFilesCommitted:
		return "files-committed"
	case StatePushed:
		return "pushed"
	case StatePROpened:
		return "pr-opened"
	case StateRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

const (
	forkPollInterval = 1 * time.Second
	// Fork creation is asynchronous on the server side; one minute of
	// polling covers everything short of an outage.
	maxForkPolls = 60

	forkRemoteName  = "fork"
	defaultFileMode = 0o644
)

// Options configure a workflow run.
type Options struct {
	// DryRun prints the intended operations without executing any of them.
	DryRun bool

	// WriteOnly performs the local branch and commits but stops before
	// pushing or opening the pull request.
	WriteOnly bool

	// NoFork pushes the branch to origin instead of a fork. For users with
	// push access to the tap.
	NoFork bool
}

// Bumper runs the bump workflow against an API client and a local checkout.
type Bumper struct {
	api  GitHubAPI
	repo LocalRepo
	opts Options
	log  *bullets.Logger

	state State
	sleep func(time.Duration)
}

// New creates a Bumper.
func New(apiClient GitHubAPI, repo LocalRepo, opts Options) *Bumper {
	return &Bumper{
		api:   apiClient,
		repo:  repo,
		opts:  opts,
		log:   logger.NoLogger(),
		state: StateInit,
		sleep: time.Sleep,
	}
}

// SetLogger sets the logger used for progress output.
func (b *Bumper) SetLogger(log *bullets.Logger) {
	b.log = log
}

// State returns the workflow's current state.
func (b *Bumper) State() State {
	return b.state
}

// Run executes the workflow. On success it returns the opened pull request
// (nil in dry-run and write-only modes). On failure it rolls back every file
// edit already applied and returns the original error; the caller reports it
// as fatal rather than attempting partial success.
func (b *Bumper) Run(ctx context.Context, bctx *Context) (*github.PullRequest, error) {
	if len(bctx.Edits()) == 0 {
		return nil, errNoEdits
	}

	if b.opts.DryRun {
		b.printPlan(bctx)
		return nil, nil
	}

	pr, err := b.run(ctx, bctx)
	if err != nil {
		failedAt := b.state
		b.rollback(bctx)
		b.state = StateRolledBack
		return nil, fmt.Errorf("bump of %s failed at %s: %w", bctx.Tap(), failedAt, err)
	}
	return pr, nil
}

func (b *Bumper) run(ctx context.Context, bctx *Context) (*github.PullRequest, error) {
	if !b.opts.NoFork {
		if err := b.fork(ctx, bctx); err != nil {
			return nil, err
		}
		if err := b.awaitForkReady(ctx, bctx); err != nil {
			return nil, err
		}
	}

	b.state = StateBranchCreated
	if err := b.repo.CreateBranch(bctx.SourceBranch); err != nil {
		return nil, err
	}

	if err := b.applyEdits(bctx); err != nil {
		return nil, err
	}
	b.state = StateFilesCommitted

	if b.opts.WriteOnly {
		b.log.Info(fmt.Sprintf("Branch %s written; stopping before push (--write-only)", bctx.SourceBranch))
		return nil, nil
	}

	if err := b.push(bctx); err != nil {
		return nil, err
	}
	b.state = StatePushed

	pr, err := b.openPullRequest(ctx, bctx)
	if err != nil {
		return nil, err
	}
	b.state = StatePROpened
	b.log.Info(fmt.Sprintf("Pull request opened: %s", pr.GetHTMLURL()))
	return pr, nil
}

// fork creates (or reuses) the fork and records its coordinates in the
// workflow context.
func (b *Bumper) fork(ctx context.Context, bctx *Context) error {
	b.state = StateForking

	user, err := b.api.AuthenticatedUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve authenticated user: %w", err)
	}

	b.log.Info(fmt.Sprintf("Forking %s as %s", bctx.Tap(), user.GetLogin()))
	fork, err := b.api.CreateFork(ctx, bctx.TapOwner, bctx.TapRepo)
	if err != nil {
		return err
	}

	bctx.ForkOwner = fork.GetOwner().GetLogin()
	if bctx.ForkOwner == "" {
		bctx.ForkOwner = user.GetLogin()
	}
	bctx.ForkRepo = fork.GetName()
	if bctx.ForkRepo == "" {
		bctx.ForkRepo = bctx.TapRepo
	}
	bctx.ForkURL = fork.GetCloneURL()
	return nil
}

// awaitForkReady polls until the fork is visible. The interval is fixed at
// one second; the attempt count is bounded so a failed fork operation cannot
// hang the workflow forever.
func (b *Bumper) awaitForkReady(ctx context.Context, bctx *Context) error {
	b.state = StateAwaitingForkReady

	for attempt := 0; attempt < maxForkPolls; attempt++ {
		if attempt > 0 {
			b.sleep(forkPollInterval)
		}

		exists, err := b.api.RepositoryExists(ctx, bctx.ForkOwner, bctx.ForkRepo)
		if err != nil {
			return fmt.Errorf("failed to check fork %s/%s: %w", bctx.ForkOwner, bctx.ForkRepo, err)
		}
		if exists {
			return nil
		}
		b.log.Debug(fmt.Sprintf("Fork %s/%s not ready yet (attempt %d)", bctx.ForkOwner, bctx.ForkRepo, attempt+1))
	}

	return fmt.Errorf("%w: %s/%s after %d attempts", errForkNotReady, bctx.ForkOwner, bctx.ForkRepo, maxForkPolls)
}

// applyEdits writes each edit to disk and commits it. Each edit records its
// pre-edit state the moment it is applied so rollback restores exactly the
// files that were touched.
func (b *Bumper) applyEdits(bctx *Context) error {
	for _, edit := range bctx.Edits() {
		edit.mode = defaultFileMode
		if info, err := os.Stat(edit.Path); err == nil {
			edit.existed = true
			edit.mode = info.Mode()
		}

		if err := os.WriteFile(edit.Path, []byte(edit.NewContents), edit.mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", edit.Path, err)
		}
		edit.applied = true

		if err := b.repo.CommitFile(edit.Path, edit.Message); err != nil {
			return err
		}
		b.log.Info(fmt.Sprintf("Committed %s", firstLine(edit.Message)))
	}
	return nil
}

func (b *Bumper) push(bctx *Context) error {
	remote := "origin"
	if !b.opts.NoFork {
		remote = forkRemoteName
		if err := b.repo.EnsureRemote(forkRemoteName, bctx.ForkURL); err != nil {
			return err
		}
	}
	return b.repo.Push(remote, bctx.SourceBranch)
}

func (b *Bumper) openPullRequest(ctx context.Context, bctx *Context) (*github.PullRequest, error) {
	title, body := bctx.Title, bctx.Body
	if title == "" {
		title = firstLine(bctx.Edits()[0].Message)
	}
	if body == "" {
		body = bctx.Edits()[0].Message
	}

	head := bctx.SourceBranch
	if !b.opts.NoFork && bctx.ForkOwner != bctx.TapOwner {
		head = bctx.ForkOwner + ":" + bctx.SourceBranch
	}

	return b.api.CreatePullRequest(ctx, bctx.TapOwner, bctx.TapRepo, api.NewPullRequest{
		Title:               title,
		Head:                head,
		Base:                bctx.TargetBranch,
		Body:                body,
		MaintainerCanModify: true,
	})
}

// rollback restores every applied edit to its pre-edit contents. Files that
// were never applied are left untouched. Restore failures are logged and do
// not mask the workflow error.
func (b *Bumper) rollback(bctx *Context) {
	for _, edit := range bctx.Edits() {
		if !edit.applied {
			continue
		}

		var err error
		if edit.existed {
			err = os.WriteFile(edit.Path, []byte(edit.OldContents), edit.mode)
		} else {
			err = os.Remove(edit.Path)
		}
		if err != nil {
			b.log.Error(fmt.Sprintf("Failed to restore %s: %v", edit.Path, err))
			continue
		}
		b.log.Info(fmt.Sprintf("Restored %s", edit.Path))
	}
}

// printPlan prints the operations a real run would perform.
func (b *Bumper) printPlan(bctx *Context) {
	b.log.Info(fmt.Sprintf("Would fork %s and wait for the fork to be ready", bctx.Tap()))
	b.log.Info(fmt.Sprintf("Would create branch %s", bctx.SourceBranch))
	for _, edit := range bctx.Edits() {
		b.log.Info(fmt.Sprintf("Would edit and commit %s: %s", edit.Path, firstLine(edit.Message)))
	}
	if b.opts.WriteOnly {
		b.log.Info("Would stop before push (--write-only)")
		return
	}
	b.log.Info(fmt.Sprintf("Would push %s and open a pull request against %s:%s",
		bctx.SourceBranch, bctx.Tap(), bctx.TargetBranch))
}
