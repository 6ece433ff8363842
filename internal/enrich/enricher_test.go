package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"songmeta/internal/models"
	"songmeta/internal/scoring"
	"songmeta/internal/search"
	"songmeta/internal/services"
	"songmeta/internal/testutil"
)

func seconds(v float64) *float64 { return &v }

func newTestEnricher(searcher services.RecordingSearcher) *Enricher {
	return NewEnricher(search.NewOrchestrator(searcher, 0, nil), scoring.NewScorer(nil), nil)
}

func TestEnricher_Match(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	rec := testutil.NewRecordingBuilder().WithID("rec-1").WithTitle("Song Title").WithScore(80).WithLength(242000).WithArtists("Artist").Build()
	testutil.ExpectSearch(searcher, services.SearchQuery{Title: "Song Title", Artist: "artist"}, []services.Recording{rec}, nil)

	result, err := newTestEnricher(searcher).Match(context.Background(), Request{
		RawTitle:        "Artist - Song Title (Official Music Video)",
		Uploader:        "Artist",
		DurationSeconds: seconds(240),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "rec-1", result.Recording.ID)
	assert.Equal(t, 108, result.Score)
	assert.Equal(t, search.StageArtist, result.Stage)
	assert.Equal(t, "Song Title", result.CleanedTitle)
	assert.Equal(t, "Artist", result.DetectedArtist)
	assert.Equal(t, 1, result.Candidates)
	assert.Equal(t, 3, result.Breakdown.Duration)
	assert.Equal(t, 25, result.Breakdown.Artist)
	searcher.AssertNumberOfCalls(t, "SearchRecordings", 1)
}

func TestEnricher_MatchQuotedTitle(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	rec := testutil.NewRecordingBuilder().WithID("rec-yodaka").WithTitle("ヨダカ").WithScore(100).WithArtists("月詠み").Build()
	testutil.ExpectSearch(searcher, services.SearchQuery{Title: "ヨダカ", Artist: "月詠み"}, []services.Recording{rec}, nil)

	result, err := newTestEnricher(searcher).Match(context.Background(), Request{
		RawTitle: "月詠み『ヨダカ』",
		Artist:   "月詠み",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "rec-yodaka", result.Recording.ID)
	assert.Equal(t, "ヨダカ", result.CleanedTitle)
	assert.Equal(t, "月詠み", result.DetectedArtist)
}

func TestEnricher_MatchBelowThreshold(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	weak := testutil.NewRecordingBuilder().WithScore(70).WithLength(0).WithArtists("Someone Else").Build()
	testutil.ExpectAnySearch(searcher, []services.Recording{weak}, nil)

	result, err := newTestEnricher(searcher).Match(context.Background(), Request{
		RawTitle: "Band - Song",
		Artist:   "Band",
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEnricher_MatchNothingFound(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	testutil.ExpectAnySearch(searcher, []services.Recording{}, nil)

	result, err := newTestEnricher(searcher).Match(context.Background(), Request{RawTitle: "Band - Song [MV]"})
	require.NoError(t, err)
	assert.Nil(t, result)

	// artist, title, raw+artist, free text
	searcher.AssertNumberOfCalls(t, "SearchRecordings", 4)
}

func TestEnricher_MatchSearchFailuresAreNoMatch(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	testutil.ExpectAnySearch(searcher, nil, &services.ServiceError{Service: "musicbrainz", Operation: "search", StatusCode: 503})

	result, err := newTestEnricher(searcher).Match(context.Background(), Request{RawTitle: "Song"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEnricher_MatchEmptyTitle(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}

	_, err := newTestEnricher(searcher).Match(context.Background(), Request{RawTitle: "   "})
	assert.ErrorIs(t, err, ErrEmptyTitle)
	searcher.AssertNotCalled(t, "SearchRecordings", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnricher_MatchCancelled(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEnricher(searcher).Match(ctx, Request{RawTitle: "Song"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, result)
}

func TestKnownArtists(t *testing.T) {
	assert.Nil(t, knownArtists("", " "))
	assert.Equal(t, []string{"Band", "Uploader"}, knownArtists(" Band ", "Uploader"))
}

func TestEnricher_Enrich(t *testing.T) {
	ctx := context.Background()
	searcher := &testutil.MockRecordingSearcher{}
	details := &testutil.MockRecordingDetailer{}
	coverArt := &testutil.MockCoverArtFetcher{}
	repo := &testutil.MockMatchRepository{}

	rec := testutil.NewRecordingBuilder().WithTitle("Test Song").WithScore(100).WithLength(240000).WithArtists("Test Artist").Build()
	testutil.ExpectSearch(searcher, services.SearchQuery{Title: "Test Song", Artist: "test artist"}, []services.Recording{rec}, nil)
	details.On("GetRecording", mock.Anything, testutil.TestRecordingID).Return(testutil.CreateTestDetails(), nil)
	coverArt.On("FrontCover", mock.Anything, []services.CoverArtID{
		{Kind: services.CoverArtRelease, ID: testutil.TestReleaseID},
		{Kind: services.CoverArtReleaseGroup, ID: testutil.TestReleaseGroupID},
	}).Return(&services.CoverArt{
		Data:      []byte("jpeg"),
		MimeType:  "image/jpeg",
		SourceURL: "https://coverartarchive.org/release/" + testutil.TestReleaseID + "/front",
		Source:    services.CoverArtID{Kind: services.CoverArtRelease, ID: testutil.TestReleaseID},
	}, nil)
	repo.On("FindByRawTitle", mock.Anything, "Test Artist - Test Song").Return(nil, nil)

	var saved *models.Match
	testutil.ExpectMatchRepositorySave(repo, nil).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.Match)
		saved.ID = primitive.NewObjectID()
	})

	enricher := newTestEnricher(searcher)
	enricher.SetDetailer(details)
	enricher.SetCoverArt(coverArt)
	enricher.SetRepository(repo)

	meta, err := enricher.Enrich(ctx, Request{
		RawTitle:        "Test Artist - Test Song",
		DurationSeconds: seconds(240),
	})
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, testutil.TestRecordingID, meta.RecordingID)
	assert.Equal(t, "Test Song", meta.Title)
	assert.Equal(t, "Test Artist", meta.Artist)
	assert.Equal(t, "Test Album", meta.Album)
	assert.Equal(t, 2020, meta.Year)
	assert.Equal(t, 3, meta.TrackNumber)
	assert.Equal(t, 12, meta.TrackCount)
	assert.Equal(t, []string{testutil.TestISRC}, meta.ISRCs)
	assert.Equal(t, "image/jpeg", meta.CoverArtMimeType)
	assert.Equal(t, []byte("jpeg"), meta.CoverArt)
	assert.Equal(t, 105, meta.Score)
	assert.Equal(t, "artist", meta.Stage)
	assert.False(t, meta.Cached)

	require.NotNil(t, saved)
	assert.Equal(t, saved.ID.Hex(), meta.MatchID)
	assert.Equal(t, "Test Song", saved.CleanedTitle)
	assert.Equal(t, testutil.TestReleaseID, saved.ReleaseID)
	assert.Equal(t, testutil.TestReleaseGroupID, saved.ReleaseGroupID)
	assert.Equal(t, 240.0, saved.DurationSeconds)
	require.True(t, saved.HasCoverArt())
	assert.Equal(t, "release", saved.CoverArt.Source)

	searcher.AssertExpectations(t)
	details.AssertExpectations(t)
	coverArt.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestEnricher_EnrichDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	searcher := &testutil.MockRecordingSearcher{}
	details := &testutil.MockRecordingDetailer{}
	coverArt := &testutil.MockCoverArtFetcher{}

	rec := testutil.NewRecordingBuilder().WithScore(100).Build()
	testutil.ExpectAnySearch(searcher, []services.Recording{rec}, nil)

	enricher := newTestEnricher(searcher)
	enricher.SetDetailer(details)
	enricher.SetCoverArt(coverArt)

	// Detail lookup fails: no release, so no cover art request either
	details.On("GetRecording", mock.Anything, testutil.TestRecordingID).Return(nil, errors.New("timeout")).Once()

	meta, err := enricher.Enrich(ctx, Request{RawTitle: "Test Song", Artist: "Test Artist"})
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Test Song", meta.Title)
	assert.Empty(t, meta.Album)
	assert.Empty(t, meta.CoverArtURL)
	coverArt.AssertNotCalled(t, "FrontCover", mock.Anything, mock.Anything)

	// Cover art fails hard: metadata is still returned
	details.On("GetRecording", mock.Anything, testutil.TestRecordingID).Return(testutil.CreateTestDetails(), nil).Once()
	coverArt.On("FrontCover", mock.Anything, mock.Anything).Return(nil, &services.ServiceError{Service: "coverart", Operation: "front_cover", StatusCode: 502}).Once()

	meta, err = enricher.Enrich(ctx, Request{RawTitle: "Test Song", Artist: "Test Artist"})
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Test Album", meta.Album)
	assert.Empty(t, meta.CoverArtURL)
}

func TestEnricher_EnrichNoMatch(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	testutil.ExpectAnySearch(searcher, []services.Recording{}, nil)
	repo := &testutil.MockMatchRepository{}
	repo.On("FindByRawTitle", mock.Anything, "Unknown Upload").Return(nil, nil)

	enricher := newTestEnricher(searcher)
	enricher.SetRepository(repo)

	meta, err := enricher.Enrich(context.Background(), Request{RawTitle: "Unknown Upload"})
	require.NoError(t, err)
	assert.Nil(t, meta)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestEnricher_EnrichUsesStoredMatch(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	repo := &testutil.MockMatchRepository{}

	stored := testutil.NewMatchBuilder().
		WithID(testutil.TestMatchID).
		WithCoverArt("https://coverartarchive.org/release/x/front").
		Build()
	stored.Uploader = "Channel"
	repo.On("FindByRawTitle", mock.Anything, stored.RawTitle).Return(stored, nil)

	enricher := newTestEnricher(searcher)
	enricher.SetRepository(repo)

	meta, err := enricher.Enrich(context.Background(), Request{RawTitle: stored.RawTitle, Uploader: "Channel"})
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.Cached)
	assert.Equal(t, testutil.TestMatchID, meta.MatchID)
	assert.Equal(t, "https://coverartarchive.org/release/x/front", meta.CoverArtURL)
	searcher.AssertNotCalled(t, "SearchRecordings", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnricher_EnrichRefreshIgnoresStoredMatch(t *testing.T) {
	searcher := &testutil.MockRecordingSearcher{}
	testutil.ExpectAnySearch(searcher, []services.Recording{}, nil)
	repo := &testutil.MockMatchRepository{}

	enricher := newTestEnricher(searcher)
	enricher.SetRepository(repo)

	meta, err := enricher.Enrich(context.Background(), Request{RawTitle: "Song", Refresh: true})
	require.NoError(t, err)
	assert.Nil(t, meta)
	repo.AssertNotCalled(t, "FindByRawTitle", mock.Anything, mock.Anything)
}

func TestSameInput(t *testing.T) {
	match := models.NewMatch("Song")
	match.Uploader = "Channel"
	match.DurationSeconds = 200

	assert.True(t, sameInput(match, Request{RawTitle: "Song", Uploader: "Channel", DurationSeconds: seconds(200)}))
	assert.False(t, sameInput(match, Request{RawTitle: "Song", Uploader: "Channel"}))
	assert.False(t, sameInput(match, Request{RawTitle: "Song", Uploader: "Other", DurationSeconds: seconds(200)}))
}
