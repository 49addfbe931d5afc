package bump

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/tapbump/testing/mocks"
)

// These tests live inside the package to replace the sleep hook; the wall
// clock never enters the picture.

func TestAwaitForkReadyPollsUntilVisible(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.RepositoryExistsResponses = []bool{false, false, true}

	var sleeps []time.Duration
	b := New(apiMock, mocks.NewLocalRepo(), Options{})
	b.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	bctx := &Context{ForkOwner: "someuser", ForkRepo: "homebrew-tools"}
	err := b.awaitForkReady(context.Background(), bctx)
	require.NoError(t, err)

	// Two misses then a hit: exactly three checks with a pause before each
	// retry, none before the first.
	assert.Equal(t, 3, apiMock.GetCallCount("RepositoryExists"))
	require.Len(t, sleeps, 2)
	for _, d := range sleeps {
		assert.Equal(t, forkPollInterval, d)
	}
}

func TestAwaitForkReadyImmediateHitSkipsSleep(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.RepositoryExistsResponses = []bool{true}

	slept := false
	b := New(apiMock, mocks.NewLocalRepo(), Options{})
	b.sleep = func(time.Duration) { slept = true }

	bctx := &Context{ForkOwner: "someuser", ForkRepo: "homebrew-tools"}
	require.NoError(t, b.awaitForkReady(context.Background(), bctx))

	assert.Equal(t, 1, apiMock.GetCallCount("RepositoryExists"))
	assert.False(t, slept)
}

func TestAwaitForkReadyGivesUpAfterBound(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.RepositoryExistsResponses = []bool{false}

	b := New(apiMock, mocks.NewLocalRepo(), Options{})
	b.sleep = func(time.Duration) {}

	bctx := &Context{ForkOwner: "someuser", ForkRepo: "homebrew-tools"}
	err := b.awaitForkReady(context.Background(), bctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForkNotReady)
	assert.Equal(t, maxForkPolls, apiMock.GetCallCount("RepositoryExists"))
}

func TestAwaitForkReadyPropagatesCheckError(t *testing.T) {
	apiMock := mocks.NewGitHubAPI()
	apiMock.RepositoryExistsError = assert.AnError

	b := New(apiMock, mocks.NewLocalRepo(), Options{})
	b.sleep = func(time.Duration) {}

	bctx := &Context{ForkOwner: "someuser", ForkRepo: "homebrew-tools"}
	err := b.awaitForkReady(context.Background(), bctx)

	require.Error(t, err)
	assert.Equal(t, 1, apiMock.GetCallCount("RepositoryExists"))
}
