package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v69/github"
)

// NewPullRequest is the payload for opening a pull request. Head uses the
// "owner:branch" form when the branch lives on a fork.
type NewPullRequest struct {
	Title               string `json:"title"`
	Head                string `json:"head"`
	Base                string `json:"base"`
	Body                string `json:"body,omitempty"`
	MaintainerCanModify bool   `json:"maintainer_can_modify"`
}

// CreatePullRequest opens a pull request against owner/repo.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*github.PullRequest, error) {
	resp, err := c.Do(ctx, Request{
		URL:      c.restURL("repos/%s/%s/pulls", owner, repo),
		Method:   http.MethodPost,
		Body:     pr,
		Scopes:   scopeRepo,
		Resource: fmt.Sprintf("%s/%s pull request %q", owner, repo, pr.Title),
	})
	if err != nil {
		return nil, err
	}

	var out github.PullRequest
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPullRequests returns the repository's pull requests in the given state
// ("open", "closed" or "all"), traversing every page.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]*github.PullRequest, error) {
	listURL, err := appendQuery(c.restURL("repos/%s/%s/pulls", owner, repo), "state", state)
	if err != nil {
		return nil, err
	}

	var prs []*github.PullRequest
	err = c.PaginateREST(ctx, Request{
		URL:      listURL,
		Resource: owner + "/" + repo + " pull requests",
	}, func(items []json.RawMessage, _ int) error {
		for _, item := range items {
			var pr github.PullRequest
			if err := json.Unmarshal(item, &pr); err != nil {
				return fmt.Errorf("failed to decode pull request: %w", err)
			}
			prs = append(prs, &pr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prs, nil
}

// PullRequestFiles returns the files touched by a pull request.
func (c *Client) PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]*github.CommitFile, error) {
	var files []*github.CommitFile
	err := c.PaginateREST(ctx, Request{
		URL:      c.restURL("repos/%s/%s/pulls/%d/files", owner, repo, number),
		Resource: fmt.Sprintf("%s/%s#%d files", owner, repo, number),
	}, func(items []json.RawMessage, _ int) error {
		for _, item := range items {
			var f github.CommitFile
			if err := json.Unmarshal(item, &f); err != nil {
				return fmt.Errorf("failed to decode pull request file: %w", err)
			}
			files = append(files, &f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
