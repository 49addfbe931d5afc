package bump_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/tapbump/pkg/bump"
	"github.com/sgaunet/tapbump/testing/fixtures"
	"github.com/sgaunet/tapbump/testing/mocks"
)

// writeFormula creates a formula file and returns its path and contents.
func writeFormula(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func editFor(t *testing.T, path, newContents string) *bump.FileEdit {
	t.Helper()
	old, err := os.ReadFile(path)
	require.NoError(t, err)
	return &bump.FileEdit{
		Path:        path,
		OldContents: string(old),
		NewContents: newContents,
		Message:     filepath.Base(path) + " 1.0.0 -> 1.1.0",
	}
}

func TestRunRequiresEdits(t *testing.T) {
	bumper := bump.New(mocks.NewGitHubAPI(), mocks.NewLocalRepo(), bump.Options{})
	_, err := bumper.Run(context.Background(), &bump.Context{TapOwner: "taporg", TapRepo: "homebrew-tools"})
	assert.ErrorIs(t, err, bump.ErrNoEdits)
}

func TestRunHappyPathOpensCrossOwnerPR(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.AuthenticatedUserResponse = fixtures.AuthenticatedUser()
	apiMock.CreateForkResponse = fixtures.ForkRepository()
	apiMock.CreatePullRequestResponse = fixtures.OpenedPullRequest()
	repoMock := mocks.NewLocalRepo()

	dir := t.TempDir()
	path := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-foo-1.1.0",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, path, "version \"1.1.0\"\n"))

	bumper := bump.New(apiMock, repoMock, bump.Options{})
	pr, err := bumper.Run(context.Background(), bctx)
	require.NoError(t, err)
	require.NotNil(t, pr)

	assert.Equal(t, bump.StatePROpened, bumper.State())

	// The fork belongs to someuser, so the PR head is owner-qualified.
	created := apiMock.GetLastCall("CreatePullRequest")
	require.NotNil(t, created)
	assert.Equal(t, "someuser:bump-foo-1.1.0", created.Args["head"])
	assert.Equal(t, "main", created.Args["base"])

	remote := repoMock.GetLastCall("EnsureRemote")
	require.NotNil(t, remote)
	assert.Equal(t, "fork", remote.Args["name"])
	assert.Equal(t, "https://github.com/someuser/homebrew-tools.git", remote.Args["url"])

	push := repoMock.GetLastCall("Push")
	require.NotNil(t, push)
	assert.Equal(t, "fork", push.Args["remote"])
	assert.Equal(t, "bump-foo-1.1.0", push.Args["branch"])

	// The edit landed on disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version \"1.1.0\"\n", string(data))
}

func TestRunNoForkPushesToOrigin(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.CreatePullRequestResponse = fixtures.OpenedPullRequest()
	repoMock := mocks.NewLocalRepo()

	dir := t.TempDir()
	path := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-foo-1.1.0",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, path, "version \"1.1.0\"\n"))

	bumper := bump.New(apiMock, repoMock, bump.Options{NoFork: true})
	_, err := bumper.Run(context.Background(), bctx)
	require.NoError(t, err)

	assert.Zero(t, apiMock.GetCallCount("CreateFork"))
	assert.Zero(t, apiMock.GetCallCount("RepositoryExists"))
	assert.Zero(t, repoMock.GetCallCount("EnsureRemote"))

	push := repoMock.GetLastCall("Push")
	require.NotNil(t, push)
	assert.Equal(t, "origin", push.Args["remote"])

	// Same-owner push means an unqualified head ref.
	created := apiMock.GetLastCall("CreatePullRequest")
	require.NotNil(t, created)
	assert.Equal(t, "bump-foo-1.1.0", created.Args["head"])
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	repoMock := mocks.NewLocalRepo()

	dir := t.TempDir()
	path := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-foo-1.1.0",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, path, "version \"1.1.0\"\n"))

	bumper := bump.New(apiMock, repoMock, bump.Options{DryRun: true})
	pr, err := bumper.Run(context.Background(), bctx)
	require.NoError(t, err)
	assert.Nil(t, pr)

	assert.Zero(t, apiMock.GetCallCount("CreateFork"))
	assert.Zero(t, apiMock.GetCallCount("CreatePullRequest"))
	assert.Zero(t, repoMock.GetCallCount("CreateBranch"))
	assert.Zero(t, repoMock.GetCallCount("CommitFile"))
	assert.Zero(t, repoMock.GetCallCount("Push"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version \"1.0.0\"\n", string(data), "dry run must not edit the file")
}

func TestRunWriteOnlyStopsBeforePush(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	repoMock := mocks.NewLocalRepo()

	dir := t.TempDir()
	path := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-foo-1.1.0",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, path, "version \"1.1.0\"\n"))

	bumper := bump.New(apiMock, repoMock, bump.Options{WriteOnly: true, NoFork: true})
	pr, err := bumper.Run(context.Background(), bctx)
	require.NoError(t, err)
	assert.Nil(t, pr)

	assert.Equal(t, 1, repoMock.GetCallCount("CreateBranch"))
	assert.Equal(t, 1, repoMock.GetCallCount("CommitFile"))
	assert.Zero(t, repoMock.GetCallCount("Push"))
	assert.Zero(t, apiMock.GetCallCount("CreatePullRequest"))
	assert.Equal(t, bump.StateFilesCommitted, bumper.State())
}

func TestRunRollsBackAppliedEditsOnly(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	repoMock := mocks.NewLocalRepo()

	dir := t.TempDir()
	first := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")
	second := writeFormula(t, dir, "bar.rb", "version \"2.0.0\"\n")
	// The third edit targets a path that cannot be written, so it never
	// gets applied and the workflow fails mid-apply.
	third := filepath.Join(dir, "missing-dir", "baz.rb")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-many",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, first, "version \"1.1.0\"\n"))
	bctx.AddEdit(editFor(t, second, "version \"2.1.0\"\n"))
	bctx.AddEdit(&bump.FileEdit{Path: third, NewContents: "version \"3.0.0\"\n", Message: "baz 3.0.0"})

	bumper := bump.New(apiMock, repoMock, bump.Options{NoFork: true})
	_, err := bumper.Run(context.Background(), bctx)
	require.Error(t, err)
	assert.Equal(t, bump.StateRolledBack, bumper.State())

	// The two applied edits are back at their pre-edit contents, byte for
	// byte; the failed one left no file behind.
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "version \"1.0.0\"\n", string(data))

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "version \"2.0.0\"\n", string(data))

	_, err = os.Stat(third)
	assert.True(t, os.IsNotExist(err))
}

func TestRunRollbackRemovesCreatedFiles(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	repoMock := mocks.NewLocalRepo()
	repoMock.PushError = assert.AnError

	dir := t.TempDir()
	created := filepath.Join(dir, "new.rb")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-new",
		TargetBranch: "main",
	}
	bctx.AddEdit(&bump.FileEdit{Path: created, NewContents: "version \"1.0.0\"\n", Message: "new 1.0.0"})

	bumper := bump.New(apiMock, repoMock, bump.Options{NoFork: true})
	_, err := bumper.Run(context.Background(), bctx)
	require.Error(t, err)

	// The file did not exist before the run, so rollback deletes it.
	_, err = os.Stat(created)
	assert.True(t, os.IsNotExist(err))
}

func TestRunCommitFailureRollsBack(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	repoMock := mocks.NewLocalRepo()
	repoMock.CommitFileErrorAfter = 1

	dir := t.TempDir()
	first := writeFormula(t, dir, "foo.rb", "version \"1.0.0\"\n")
	second := writeFormula(t, dir, "bar.rb", "version \"2.0.0\"\n")

	bctx := &bump.Context{
		TapOwner:     "taporg",
		TapRepo:      "homebrew-tools",
		SourceBranch: "bump-many",
		TargetBranch: "main",
	}
	bctx.AddEdit(editFor(t, first, "version \"1.1.0\"\n"))
	bctx.AddEdit(editFor(t, second, "version \"2.1.0\"\n"))

	bumper := bump.New(apiMock, repoMock, bump.Options{NoFork: true})
	_, err := bumper.Run(context.Background(), bctx)
	require.Error(t, err)

	// Both writes happened before the second commit failed; both are
	// restored.
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "version \"1.0.0\"\n", string(data))

	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "version \"2.0.0\"\n", string(data))
}
