package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"songmeta/internal/cache"
	"songmeta/internal/models"
	"songmeta/internal/testutil"
)

func TestCachedMatchRepository_FindByID_CachesHit(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	match := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).Build()
	base.On("FindByID", mock.Anything, testutil.TestMatchID).Return(match, nil).Once()

	repo := NewCachedMatchRepository(base, cache.NewMemoryCache(10), nil)

	first, err := repo.FindByID(ctx, testutil.TestMatchID)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.FindByID(ctx, testutil.TestMatchID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, match.RecordingID, second.RecordingID)
	assert.Equal(t, match.ID, second.ID)

	base.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedMatchRepository_FindByID_CachesMiss(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	base.On("FindByID", mock.Anything, testutil.TestMatchID).Return(nil, nil).Once()

	repo := NewCachedMatchRepository(base, cache.NewMemoryCache(10), nil)

	for i := 0; i < 3; i++ {
		match, err := repo.FindByID(ctx, testutil.TestMatchID)
		require.NoError(t, err)
		assert.Nil(t, match)
	}
	base.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedMatchRepository_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	base.On("FindByRawTitle", mock.Anything, "Song").Return(nil, errors.New("connection reset")).Once()
	base.On("FindByRawTitle", mock.Anything, "Song").Return(testutil.NewMatchBuilder().Build(), nil).Once()

	repo := NewCachedMatchRepository(base, cache.NewMemoryCache(10), nil)

	_, err := repo.FindByRawTitle(ctx, "Song")
	require.Error(t, err)

	match, err := repo.FindByRawTitle(ctx, "Song")
	require.NoError(t, err)
	require.NotNil(t, match)
	base.AssertExpectations(t)
}

func TestCachedMatchRepository_SaveInvalidates(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	c := cache.NewMemoryCache(10)
	repo := NewCachedMatchRepository(base, c, nil)

	stale := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).WithScore(80).Build()
	fresh := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).WithScore(95).Build()

	base.On("FindByID", mock.Anything, testutil.TestMatchID).Return(stale, nil).Once()
	base.On("FindByRawTitle", mock.Anything, stale.RawTitle).Return(stale, nil).Once()
	_, err := repo.FindByID(ctx, testutil.TestMatchID)
	require.NoError(t, err)
	_, err = repo.FindByRawTitle(ctx, stale.RawTitle)
	require.NoError(t, err)

	base.On("Save", mock.Anything, fresh).Return(nil).Once()
	require.NoError(t, repo.Save(ctx, fresh))

	exists, _ := c.Exists(ctx, matchIDKey(testutil.TestMatchID))
	assert.False(t, exists)
	exists, _ = c.Exists(ctx, matchRawTitleKey(stale.RawTitle))
	assert.False(t, exists)

	base.On("FindByID", mock.Anything, testutil.TestMatchID).Return(fresh, nil).Once()
	got, err := repo.FindByID(ctx, testutil.TestMatchID)
	require.NoError(t, err)
	assert.Equal(t, 95, got.Score)
}

func TestCachedMatchRepository_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	c := cache.NewMemoryCache(10)
	require.NoError(t, c.Set(ctx, matchIDKey(testutil.TestMatchID), []byte("{not json"), 0))

	match := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).Build()
	base.On("FindByID", mock.Anything, testutil.TestMatchID).Return(match, nil).Once()

	repo := NewCachedMatchRepository(base, c, nil)
	got, err := repo.FindByID(ctx, testutil.TestMatchID)
	require.NoError(t, err)
	require.NotNil(t, got)
	base.AssertExpectations(t)
}

func TestCachedMatchRepository_Passthrough(t *testing.T) {
	ctx := context.Background()
	base := &testutil.MockMatchRepository{}
	base.On("Count", mock.Anything).Return(int64(42), nil)
	base.On("FindMissingCoverArt", mock.Anything, 5).Return([]*models.Match{testutil.NewMatchBuilder().Build()}, nil)

	repo := NewCachedMatchRepository(base, cache.NewMemoryCache(10), nil)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	missing, err := repo.FindMissingCoverArt(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, missing, 1)
}
