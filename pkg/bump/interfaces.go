package bump

import (
	"context"

	"github.com/google/go-github/v69/github"

	"github.com/sgaunet/tapbump/pkg/api"
	"github.com/sgaunet/tapbump/pkg/git"
)

// GitHubAPI is the slice of the API client the workflow depends on. The
// interface enables dependency injection and black-box testing with mock
// implementations in place of the real client.
type GitHubAPI interface {
	// AuthenticatedUser fetches the user the credential belongs to.
	AuthenticatedUser(ctx context.Context) (*github.User, error)

	// CreateFork forks owner/repo under the authenticated user. Idempotent:
	// an existing fork is returned instead of creating a new one.
	CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error)

	// RepositoryExists reports whether owner/repo is visible. Absence is a
	// valid "false" result, not an error.
	RepositoryExists(ctx context.Context, owner, repo string) (bool, error)

	// CreatePullRequest opens a pull request against owner/repo.
	CreatePullRequest(ctx context.Context, owner, repo string, pr api.NewPullRequest) (*github.PullRequest, error)

	// ListPullRequests returns the repository's pull requests in the given
	// state ("open", "closed" or "all").
	ListPullRequests(ctx context.Context, owner, repo, state string) ([]*github.PullRequest, error)

	// PullRequestFiles returns the files touched by a pull request.
	PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*github.CommitFile, error)
}

// LocalRepo is the slice of the local git collaborator the workflow depends
// on. The workflow treats git as an opaque capability; pkg/git implements it.
type LocalRepo interface {
	// CreateBranch creates the branch at HEAD and checks it out.
	CreateBranch(name string) error

	// CommitFile stages the file and commits it with the message.
	CommitFile(path, message string) error

	// EnsureRemote creates the named remote if it does not exist.
	EnsureRemote(name, url string) error

	// Push pushes the branch to the named remote.
	Push(remote, branch string) error
}

// Compile-time checks that the real implementations satisfy the interfaces.
var (
	_ GitHubAPI = (*api.Client)(nil)
	_ LocalRepo = (*git.Repository)(nil)
)
