package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"songmeta/internal/models"
	"songmeta/internal/services"
	"songmeta/internal/testutil"
)

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	repo := &testutil.MockMatchRepository{}
	coverArt := &testutil.MockCoverArtFetcher{}

	withCover := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).WithRelease(testutil.TestReleaseID, testutil.TestReleaseGroupID).Build()
	noCover := testutil.NewMatchBuilder().WithID("65a1f0c2e4b0a1b2c3d4e5f7").WithRelease("", "rg-without-art").Build()
	broken := testutil.NewMatchBuilder().WithID("65a1f0c2e4b0a1b2c3d4e5f8").WithRelease("release-broken", "").Build()

	repo.On("FindMissingCoverArt", mock.Anything, 10).Return([]*models.Match{withCover, noCover, broken}, nil)

	coverArt.On("FrontCover", mock.Anything, []services.CoverArtID{
		{Kind: services.CoverArtRelease, ID: testutil.TestReleaseID},
		{Kind: services.CoverArtReleaseGroup, ID: testutil.TestReleaseGroupID},
	}).Return(&services.CoverArt{
		MimeType:  "image/png",
		SourceURL: "https://coverartarchive.org/release-group/" + testutil.TestReleaseGroupID + "/front",
		Source:    services.CoverArtID{Kind: services.CoverArtReleaseGroup, ID: testutil.TestReleaseGroupID},
	}, nil)
	coverArt.On("FrontCover", mock.Anything, []services.CoverArtID{
		{Kind: services.CoverArtReleaseGroup, ID: "rg-without-art"},
	}).Return(nil, services.ErrCoverArtNotFound)
	coverArt.On("FrontCover", mock.Anything, []services.CoverArtID{
		{Kind: services.CoverArtRelease, ID: "release-broken"},
	}).Return(nil, &services.ServiceError{Service: "coverart", Operation: "front_cover", StatusCode: 500})

	repo.On("Update", mock.Anything, withCover).Return(nil)
	repo.On("Update", mock.Anything, noCover).Return(nil)

	result, err := backfill(ctx, repo, coverArt, 10, false, nil)
	require.NoError(t, err)

	assert.Equal(t, backfillResult{Processed: 3, Updated: 1, Missing: 1, Failed: 1}, result)
	require.True(t, withCover.HasCoverArt())
	assert.Equal(t, "release-group", withCover.CoverArt.Source)
	assert.Equal(t, "image/png", withCover.CoverArt.MimeType)
	assert.False(t, noCover.HasCoverArt())
	assert.NotNil(t, noCover.CoverArtCheckedAt)
	assert.Nil(t, broken.CoverArtCheckedAt)

	repo.AssertExpectations(t)
	coverArt.AssertExpectations(t)
}

func TestBackfill_DryRun(t *testing.T) {
	repo := &testutil.MockMatchRepository{}
	coverArt := &testutil.MockCoverArtFetcher{}

	match := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).WithRelease(testutil.TestReleaseID, "").Build()
	repo.On("FindMissingCoverArt", mock.Anything, 5).Return([]*models.Match{match}, nil)
	coverArt.On("FrontCover", mock.Anything, mock.Anything).Return(&services.CoverArt{
		SourceURL: "https://coverartarchive.org/release/x/front",
		Source:    services.CoverArtID{Kind: services.CoverArtRelease, ID: testutil.TestReleaseID},
	}, nil)

	result, err := backfill(context.Background(), repo, coverArt, 5, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.False(t, match.HasCoverArt())
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestBackfill_ListFailure(t *testing.T) {
	repo := &testutil.MockMatchRepository{}
	repo.On("FindMissingCoverArt", mock.Anything, 5).Return(nil, errors.New("down"))

	_, err := backfill(context.Background(), repo, &testutil.MockCoverArtFetcher{}, 5, false, nil)
	assert.ErrorContains(t, err, "list matches missing cover art")
}

func TestBackfill_StopsWhenCancelled(t *testing.T) {
	repo := &testutil.MockMatchRepository{}
	match := testutil.NewMatchBuilder().WithRelease(testutil.TestReleaseID, "").Build()
	repo.On("FindMissingCoverArt", mock.Anything, 5).Return([]*models.Match{match}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := backfill(ctx, repo, &testutil.MockCoverArtFetcher{}, 5, false, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Processed)
}

func TestBackfill_NoIdentifiersCountsAsMissing(t *testing.T) {
	repo := &testutil.MockMatchRepository{}
	coverArt := &testutil.MockCoverArtFetcher{}

	match := testutil.NewMatchBuilder().WithID(testutil.TestMatchID).WithRelease("", "").Build()
	repo.On("FindMissingCoverArt", mock.Anything, 5).Return([]*models.Match{match}, nil)
	repo.On("Update", mock.Anything, match).Return(nil)

	result, err := backfill(context.Background(), repo, coverArt, 5, false, nil)
	require.NoError(t, err)
	assert.Equal(t, backfillResult{Processed: 1, Missing: 1}, result)
	coverArt.AssertNotCalled(t, "FrontCover", mock.Anything, mock.Anything)
}

// Each run stamps what it could not find, so the next run starts on the
// matches that were never tried.
func TestBackfill_ConsecutiveRunsMoveOn(t *testing.T) {
	first := testutil.NewMatchBuilder().WithID("65a1f0c2e4b0a1b2c3d4e5a1").WithRelease("rel-a", "").Build()
	second := testutil.NewMatchBuilder().WithID("65a1f0c2e4b0a1b2c3d4e5a2").WithRelease("rel-b", "").Build()
	stored := []*models.Match{first, second}

	// Mirrors the store's ordering: unchecked first, then oldest check
	pending := func(limit int) []*models.Match {
		var unchecked, checked []*models.Match
		for _, m := range stored {
			if m.CoverArtCheckedAt == nil {
				unchecked = append(unchecked, m)
			} else {
				checked = append(checked, m)
			}
		}
		ordered := append(unchecked, checked...)
		if len(ordered) > limit {
			ordered = ordered[:limit]
		}
		return ordered
	}

	coverArt := &testutil.MockCoverArtFetcher{}
	coverArt.On("FrontCover", mock.Anything, mock.Anything).Return(nil, services.ErrCoverArtNotFound)

	var processed []string
	for run := 0; run < 2; run++ {
		repo := &testutil.MockMatchRepository{}
		batch := pending(1)
		repo.On("FindMissingCoverArt", mock.Anything, 1).Return(batch, nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		result, err := backfill(context.Background(), repo, coverArt, 1, false, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Missing)

		for _, m := range batch {
			processed = append(processed, m.ID.Hex())
		}
	}

	assert.Equal(t, []string{first.ID.Hex(), second.ID.Hex()}, processed)
}
