package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v69/github"
)

// scopeRepo is required for fork creation and pushing to private repos.
var scopeRepo = []string{"repo"}

// GetRepository fetches a repository by owner and name.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	resp, err := c.Do(ctx, Request{
		URL:      c.restURL("repos/%s/%s", owner, repo),
		Resource: owner + "/" + repo,
	})
	if err != nil {
		return nil, err
	}

	var out github.Repository
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RepositoryExists reports whether a repository is visible to the client.
// A NotFound response is a valid "false" result, not a failure.
func (c *Client) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	_, err := c.GetRepository(ctx, owner, repo)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateFork forks a repository under the authenticated user. The operation
// is idempotent: when a fork already exists the server returns it instead of
// creating a new one. Fork creation is asynchronous; the returned repository
// may not be ready to clone or push to yet.
func (c *Client) CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error) {
	resp, err := c.Do(ctx, Request{
		URL:      c.restURL("repos/%s/%s/forks", owner, repo),
		Method:   http.MethodPost,
		Scopes:   scopeRepo,
		Resource: owner + "/" + repo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fork %s/%s: %w", owner, repo, err)
	}

	var out github.Repository
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticatedUser fetches the user the credential belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context) (*github.User, error) {
	resp, err := c.Do(ctx, Request{
		URL:      c.restURL("user"),
		Resource: "authenticated user",
	})
	if err != nil {
		return nil, err
	}

	var out github.User
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
