package bump

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v69/github"
	"github.com/sgaunet/bullets"

	"github.com/sgaunet/tapbump/internal/logger"
	"github.com/sgaunet/tapbump/internal/timeutil"
	"github.com/sgaunet/tapbump/pkg/api"
)

// DuplicateMode controls what the guard does when it finds an existing pull
// request for the same file.
type DuplicateMode string

const (
	// DuplicateStrict aborts the whole run.
	DuplicateStrict DuplicateMode = "strict"
	// DuplicateWarn prints a warning and continues.
	DuplicateWarn DuplicateMode = "warn"
	// DuplicatePrompt asks the user whether to continue.
	DuplicatePrompt DuplicateMode = "prompt"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// DuplicateChecker looks for existing pull requests that would duplicate a
// bump before the workflow opens a new one. Listings are memoized in an
// explicit cache scoped to the checker, not in process-global state.
type DuplicateChecker struct {
	api     GitHubAPI
	cache   *api.Cache
	botUser string
	confirm ConfirmFunc
	log     *bullets.Logger
}

// NewDuplicateChecker creates a checker. botUser names the automation
// identity exempt from the guard; empty means no exemption.
func NewDuplicateChecker(apiClient GitHubAPI, cache *api.Cache, botUser string) *DuplicateChecker {
	return &DuplicateChecker{
		api:     apiClient,
		cache:   cache,
		botUser: botUser,
		log:     logger.NoLogger(),
	}
}

// SetLogger sets the logger used for warnings and debug output.
func (d *DuplicateChecker) SetLogger(log *bullets.Logger) {
	d.log = log
}

// SetConfirm sets the prompt used by DuplicatePrompt mode.
func (d *DuplicateChecker) SetConfirm(confirm ConfirmFunc) {
	d.confirm = confirm
}

// FindDuplicates returns the open and closed pull requests whose title
// contains titlePattern and which touch filePath. A rate-limited listing
// degrades to an empty result with a warning instead of failing the run.
func (d *DuplicateChecker) FindDuplicates(ctx context.Context, owner, repo, titlePattern, filePath string) ([]*github.PullRequest, error) {
	prs, err := d.listPullRequests(ctx, owner, repo)
	if err != nil {
		var rateErr *api.Error
		if errors.Is(err, api.ErrRateLimitExceeded) && errors.As(err, &rateErr) {
			d.log.Warn(fmt.Sprintf("Rate limited while checking for duplicate PRs in %s/%s; skipping the check (%s)",
				owner, repo, timeutil.FormatUntil(rateErr.Reset)))
			return nil, nil
		}
		return nil, err
	}

	pattern := strings.ToLower(titlePattern)
	var duplicates []*github.PullRequest
	for _, pr := range prs {
		if pattern != "" && !strings.Contains(strings.ToLower(pr.GetTitle()), pattern) {
			continue
		}

		files, err := d.api.PullRequestFiles(ctx, owner, repo, pr.GetNumber())
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.GetFilename() == filePath {
				duplicates = append(duplicates, pr)
				break
			}
		}
	}

	return duplicates, nil
}

// Guard runs duplicate detection and applies the configured mode. The bot
// user is exempt: automation reruns its own bumps on purpose.
func (d *DuplicateChecker) Guard(ctx context.Context, owner, repo, titlePattern, filePath string, mode DuplicateMode) error {
	if d.botUser != "" {
		user, err := d.api.AuthenticatedUser(ctx)
		if err == nil && user.GetLogin() == d.botUser {
			d.log.Debug(fmt.Sprintf("Skipping duplicate check for bot user %s", d.botUser))
			return nil
		}
	}

	duplicates, err := d.FindDuplicates(ctx, owner, repo, titlePattern, filePath)
	if err != nil {
		return err
	}
	if len(duplicates) == 0 {
		return nil
	}

	for _, pr := range duplicates {
		d.log.Warn(fmt.Sprintf("Existing PR for %s: %s (%s)", filePath, pr.GetTitle(), pr.GetHTMLURL()))
	}

	switch mode {
	case DuplicateStrict:
		return fmt.Errorf("%w: %s (%d existing)", errDuplicatePR, filePath, len(duplicates))
	case DuplicatePrompt:
		if d.confirm == nil {
			return fmt.Errorf("%w: %s (%d existing)", errDuplicatePR, filePath, len(duplicates))
		}
		ok, err := d.confirm(fmt.Sprintf("%d existing PR(s) touch %s. Open another one?", len(duplicates), filePath))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", errDuplicatePR, filePath)
		}
		return nil
	default:
		return nil
	}
}

// listPullRequests fetches all open and closed pull requests, memoized in
// the checker's cache.
func (d *DuplicateChecker) listPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error) {
	key := "pulls/" + owner + "/" + repo

	if d.cache != nil {
		if cached, ok := d.cache.Get(key); ok {
			if prs, ok := cached.([]*github.PullRequest); ok {
				return prs, nil
			}
		}
	}

	prs, err := d.api.ListPullRequests(ctx, owner, repo, "all")
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.cache.Put(key, prs)
	}
	return prs, nil
}
