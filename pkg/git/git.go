// Package git wraps the local git operations the bump workflow depends on:
// opening the tap checkout, creating the bump branch, committing file edits,
// and pushing the branch to the user's fork.
package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/sgaunet/bullets"
	cryptossh "golang.org/x/crypto/ssh"

	"github.com/sgaunet/tapbump/internal/logger"
)

var (
	errHeadNotBranch = errors.New("HEAD is not pointing to a branch")
	errNoRemoteURL   = errors.New("no URLs found for remote")
	errNoSSHKey      = errors.New("no usable SSH private key found")
)

// Repository is an open local git checkout.
type Repository struct {
	repo  *gogit.Repository
	path  string
	token string
	log   *bullets.Logger

	authorName  string
	authorEmail string
}

// OpenRepository opens the git repository at path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	return &Repository{repo: repo, path: path, log: logger.NoLogger()}, nil
}

// SetLogger sets the logger used for debug output.
func (r *Repository) SetLogger(log *bullets.Logger) {
	r.log = log
}

// SetAuthToken sets the token used for pushes over HTTPS remotes.
func (r *Repository) SetAuthToken(token string) {
	r.token = token
}

// SetIdentity sets the commit author used by CommitFile. When unset, the
// identity comes from the repository or global git config.
func (r *Repository) SetIdentity(name, email string) {
	r.authorName = name
	r.authorEmail = email
}

// CurrentBranch returns the short name of the branch HEAD points to.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", errHeadNotBranch
	}

	return head.Name().Short(), nil
}

// CreateBranch creates branchName at the current HEAD and checks it out.
func (r *Repository) CreateBranch(branchName string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	r.log.Debug(fmt.Sprintf("Creating branch %s", branchName))
	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branchName),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branchName, err)
	}

	return nil
}

// SwitchBranch checks out an existing branch.
func (r *Repository) SwitchBranch(branchName string) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branchName),
	})
}

// CommitFile stages the file at path (absolute or repo-relative) and commits
// it with the given message, using the identity from SetIdentity when one
// was configured.
func (r *Repository) CommitFile(path, message string) error {
	var author *object.Signature
	if r.authorName != "" {
		author = &object.Signature{Name: r.authorName, Email: r.authorEmail, When: time.Now()}
	}
	return r.commit(path, message, author)
}

// CommitFileAs is CommitFile with an explicit author, for environments whose
// git config carries no identity.
func (r *Repository) CommitFileAs(path, message, name, email string) error {
	return r.commit(path, message, &object.Signature{Name: name, Email: email, When: time.Now()})
}

func (r *Repository) commit(path, message string, author *object.Signature) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	rel := path
	if filepath.IsAbs(path) {
		rel, err = filepath.Rel(worktree.Filesystem.Root(), path)
		if err != nil {
			return fmt.Errorf("file %s is outside the repository: %w", path, err)
		}
	}
	rel = filepath.ToSlash(rel)

	if _, err := worktree.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}

	r.log.Debug(fmt.Sprintf("Committing %s: %s", rel, firstLine(message)))
	_, err = worktree.Commit(message, &gogit.CommitOptions{Author: author})
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", rel, err)
	}

	return nil
}

// EnsureRemote creates the named remote pointing at url, or leaves an
// existing remote with that name untouched.
func (r *Repository) EnsureRemote(name, url string) error {
	_, err := r.repo.Remote(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gogit.ErrRemoteNotFound) {
		return fmt.Errorf("failed to look up remote %s: %w", name, err)
	}

	r.log.Debug(fmt.Sprintf("Adding remote %s -> %s", name, url))
	_, err = r.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}

	return nil
}

// GetRemoteURL returns the first URL of the named remote.
func (r *Repository) GetRemoteURL(remoteName string) (string, error) {
	remote, err := r.repo.Remote(remoteName)
	if err != nil {
		return "", fmt.Errorf("failed to get remote %s: %w", remoteName, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s", errNoRemoteURL, remoteName)
	}

	return urls[0], nil
}

// Push pushes branchName to the named remote.
func (r *Repository) Push(remoteName, branchName string) error {
	remoteURL, err := r.GetRemoteURL(remoteName)
	if err != nil {
		return err
	}

	auth, err := r.authFor(remoteURL)
	if err != nil {
		return err
	}

	r.log.Debug(fmt.Sprintf("Pushing %s to %s", branchName, remoteName))
	err = r.repo.Push(&gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec("refs/heads/" + branchName + ":refs/heads/" + branchName),
		},
		Auth: auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s to %s: %w", branchName, remoteName, err)
	}

	return nil
}

// authFor picks an auth method for the remote URL: token-based basic auth
// for HTTPS, a local private key for SSH, nothing otherwise.
func (r *Repository) authFor(remoteURL string) (transport.AuthMethod, error) {
	switch {
	case strings.HasPrefix(remoteURL, "https://"):
		if r.token == "" {
			return nil, nil
		}
		return &githttp.BasicAuth{Username: "x-access-token", Password: r.token}, nil
	case strings.HasPrefix(remoteURL, "git@"), strings.HasPrefix(remoteURL, "ssh://"):
		return sshKeyAuth()
	default:
		return nil, nil
	}
}

// sshKeyAuth loads the first usable private key from the user's ~/.ssh
// directory. Encrypted keys are skipped; an unencrypted key is the expected
// setup for non-interactive pushes.
func sshKeyAuth() (transport.AuthMethod, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	for _, name := range []string{"id_ed25519", "id_rsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", name)
		// #nosec G304 - Reading the user's own SSH key is intentional
		pem, err := os.ReadFile(keyPath)
		if err != nil {
			continue
		}

		signer, err := cryptossh.ParsePrivateKey(pem)
		if err != nil {
			continue
		}

		return &gitssh.PublicKeys{User: "git", Signer: signer}, nil
	}

	return nil, errNoSSHKey
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
