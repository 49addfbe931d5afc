// Package fixtures provides common test data structures for testing.
package fixtures

import (
	"strconv"

	"github.com/google/go-github/v69/github"
)

// Test constants for API fixtures.
const (
	defaultPRNumber  = 42
	defaultForkOwner = "someuser"
	defaultTapOwner  = "taporg"
	defaultTapRepo   = "homebrew-tools"
)

// ForkRepository returns the repository the fork endpoint would answer with.
func ForkRepository() *github.Repository {
	return &github.Repository{
		Name:     github.Ptr(defaultTapRepo),
		FullName: github.Ptr(defaultForkOwner + "/" + defaultTapRepo),
		Owner: &github.User{
			Login: github.Ptr(defaultForkOwner),
		},
		CloneURL:      github.Ptr("https://github.com/" + defaultForkOwner + "/" + defaultTapRepo + ".git"),
		DefaultBranch: github.Ptr("main"),
		Fork:          github.Ptr(true),
	}
}

// TapRepository returns the upstream tap repository.
func TapRepository() *github.Repository {
	return &github.Repository{
		Name:     github.Ptr(defaultTapRepo),
		FullName: github.Ptr(defaultTapOwner + "/" + defaultTapRepo),
		Owner: &github.User{
			Login: github.Ptr(defaultTapOwner),
		},
		CloneURL:      github.Ptr("https://github.com/" + defaultTapOwner + "/" + defaultTapRepo + ".git"),
		DefaultBranch: github.Ptr("main"),
	}
}

// AuthenticatedUser returns the user the test credential belongs to.
func AuthenticatedUser() *github.User {
	return &github.User{
		Login: github.Ptr(defaultForkOwner),
	}
}

// BumpPullRequest returns an open version-bump pull request.
func BumpPullRequest(number int, title string) *github.PullRequest {
	return &github.PullRequest{
		Number: github.Ptr(number),
		Title:  github.Ptr(title),
		State:  github.Ptr("open"),
		Head: &github.PullRequestBranch{
			Ref: github.Ptr("bump-branch"),
		},
		Base: &github.PullRequestBranch{
			Ref: github.Ptr("main"),
		},
		User: &github.User{
			Login: github.Ptr(defaultForkOwner),
		},
		HTMLURL: github.Ptr("https://github.com/" + defaultTapOwner + "/" + defaultTapRepo + "/pull/" + strconv.Itoa(number)),
	}
}

// OpenedPullRequest returns the PR the create endpoint would answer with.
func OpenedPullRequest() *github.PullRequest {
	return BumpPullRequest(defaultPRNumber, "foo 1.2.3 -> 1.2.4")
}

// CommitFiles builds a file list for a pull request.
func CommitFiles(paths ...string) []*github.CommitFile {
	files := make([]*github.CommitFile, len(paths))
	for i, p := range paths {
		files[i] = &github.CommitFile{Filename: github.Ptr(p)}
	}
	return files
}

