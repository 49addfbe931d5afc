// Package mocks provides mock implementations with call tracking for
// black-box testing of the bump workflow.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/google/go-github/v69/github"

	"github.com/sgaunet/tapbump/pkg/api"
)

var errCommitRefused = errors.New("mock: commit refused")

// MethodCall represents a tracked method call with its parameters.
type MethodCall struct {
	Method string
	Args   map[string]any
}

// GitHubAPI is a mock implementation of bump.GitHubAPI with call tracking.
type GitHubAPI struct {
	mu    sync.Mutex
	calls []MethodCall

	// Configurable responses
	AuthenticatedUserResponse *github.User
	AuthenticatedUserError    error
	CreateForkResponse        *github.Repository
	CreateForkError           error

	// RepositoryExistsResponses is consumed one entry per call; the last
	// entry sticks once the slice is exhausted.
	RepositoryExistsResponses []bool
	RepositoryExistsError     error
	repositoryExistsCalls     int

	CreatePullRequestResponse *github.PullRequest
	CreatePullRequestError    error
	ListPullRequestsResponse  []*github.PullRequest
	ListPullRequestsError     error

	// PullRequestFilesResponses maps PR number to its file list.
	PullRequestFilesResponses map[int][]*github.CommitFile
	PullRequestFilesError     error
}

// NewGitHubAPI creates a new mock API client.
func NewGitHubAPI() *GitHubAPI {
	return &GitHubAPI{
		calls:                     make([]MethodCall, 0),
		PullRequestFilesResponses: make(map[int][]*github.CommitFile),
	}
}

// AuthenticatedUser implements bump.GitHubAPI.
func (m *GitHubAPI) AuthenticatedUser(_ context.Context) (*github.User, error) {
	m.trackCall("AuthenticatedUser", map[string]any{})
	return m.AuthenticatedUserResponse, m.AuthenticatedUserError
}

// CreateFork implements bump.GitHubAPI.
func (m *GitHubAPI) CreateFork(_ context.Context, owner, repo string) (*github.Repository, error) {
	m.trackCall("CreateFork", map[string]any{
		"owner": owner,
		"repo":  repo,
	})
	return m.CreateForkResponse, m.CreateForkError
}

// RepositoryExists implements bump.GitHubAPI.
func (m *GitHubAPI) RepositoryExists(_ context.Context, owner, repo string) (bool, error) {
	m.trackCall("RepositoryExists", map[string]any{
		"owner": owner,
		"repo":  repo,
	})
	if m.RepositoryExistsError != nil {
		return false, m.RepositoryExistsError
	}

	m.mu.Lock()
	idx := m.repositoryExistsCalls
	m.repositoryExistsCalls++
	m.mu.Unlock()

	if len(m.RepositoryExistsResponses) == 0 {
		return true, nil
	}
	if idx >= len(m.RepositoryExistsResponses) {
		idx = len(m.RepositoryExistsResponses) - 1
	}
	return m.RepositoryExistsResponses[idx], nil
}

// CreatePullRequest implements bump.GitHubAPI.
func (m *GitHubAPI) CreatePullRequest(_ context.Context, owner, repo string, pr api.NewPullRequest) (*github.PullRequest, error) {
	m.trackCall("CreatePullRequest", map[string]any{
		"owner": owner,
		"repo":  repo,
		"title": pr.Title,
		"head":  pr.Head,
		"base":  pr.Base,
	})
	return m.CreatePullRequestResponse, m.CreatePullRequestError
}

// ListPullRequests implements bump.GitHubAPI.
func (m *GitHubAPI) ListPullRequests(_ context.Context, owner, repo, state string) ([]*github.PullRequest, error) {
	m.trackCall("ListPullRequests", map[string]any{
		"owner": owner,
		"repo":  repo,
		"state": state,
	})
	return m.ListPullRequestsResponse, m.ListPullRequestsError
}

// PullRequestFiles implements bump.GitHubAPI.
func (m *GitHubAPI) PullRequestFiles(_ context.Context, owner, repo string, number int) ([]*github.CommitFile, error) {
	m.trackCall("PullRequestFiles", map[string]any{
		"owner":  owner,
		"repo":   repo,
		"number": number,
	})
	if m.PullRequestFilesError != nil {
		return nil, m.PullRequestFilesError
	}
	return m.PullRequestFilesResponses[number], nil
}

// GetCallCount returns the number of calls made to a method.
func (m *GitHubAPI) GetCallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, call := range m.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// GetLastCall returns the last call made to a method, or nil.
func (m *GitHubAPI) GetLastCall(method string) *MethodCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			return &m.calls[i]
		}
	}
	return nil
}

func (m *GitHubAPI) trackCall(method string, args map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MethodCall{Method: method, Args: args})
}

// LocalRepo is a mock implementation of bump.LocalRepo with call tracking.
type LocalRepo struct {
	mu    sync.Mutex
	calls []MethodCall

	CreateBranchError error
	CommitFileError   error

	// CommitFileErrorAfter fails CommitFile once the given number of
	// commits have succeeded. Zero means never fail this way.
	CommitFileErrorAfter int

	EnsureRemoteError error
	PushError         error

	commits int
}

// NewLocalRepo creates a new mock local repository.
func NewLocalRepo() *LocalRepo {
	return &LocalRepo{calls: make([]MethodCall, 0)}
}

// CreateBranch implements bump.LocalRepo.
func (m *LocalRepo) CreateBranch(name string) error {
	m.trackCall("CreateBranch", map[string]any{"name": name})
	return m.CreateBranchError
}

// CommitFile implements bump.LocalRepo.
func (m *LocalRepo) CommitFile(path, message string) error {
	m.trackCall("CommitFile", map[string]any{
		"path":    path,
		"message": message,
	})
	if m.CommitFileError != nil {
		return m.CommitFileError
	}

	m.mu.Lock()
	m.commits++
	commits := m.commits
	m.mu.Unlock()

	if m.CommitFileErrorAfter > 0 && commits > m.CommitFileErrorAfter {
		return errCommitRefused
	}
	return nil
}

// EnsureRemote implements bump.LocalRepo.
func (m *LocalRepo) EnsureRemote(name, url string) error {
	m.trackCall("EnsureRemote", map[string]any{
		"name": name,
		"url":  url,
	})
	return m.EnsureRemoteError
}

// Push implements bump.LocalRepo.
func (m *LocalRepo) Push(remote, branch string) error {
	m.trackCall("Push", map[string]any{
		"remote": remote,
		"branch": branch,
	})
	return m.PushError
}

// GetCallCount returns the number of calls made to a method.
func (m *LocalRepo) GetCallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, call := range m.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// GetLastCall returns the last call made to a method, or nil.
func (m *LocalRepo) GetLastCall(method string) *MethodCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == method {
			return &m.calls[i]
		}
	}
	return nil
}

func (m *LocalRepo) trackCall(method string, args map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MethodCall{Method: method, Args: args})
}
