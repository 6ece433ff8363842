package testutil

import (
	"songmeta/internal/models"
	"songmeta/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Test data constants
var (
	TestRecordingID    = "b1a9c0e9-d987-4042-ae91-78d6a3267d69"
	TestReleaseID      = "2c0a4b1f-7d1c-4a83-9a26-93b54f4d2f0e"
	TestReleaseGroupID = "6f0b2a4e-1c1c-4d7a-8d4f-0cf5a9d1b0a1"
	TestISRC           = "JPU902002331"
	TestMatchID        = "65a1f0c2e4b0a1b2c3d4e5f6"
)

// MatchBuilder provides a fluent interface for creating test matches
type MatchBuilder struct {
	match *models.Match
}

// NewMatchBuilder creates a new match builder with default values
func NewMatchBuilder() *MatchBuilder {
	match := models.NewMatch("Test Artist - Test Song (Official Video)")
	match.CleanedTitle = "Test Song"
	match.DetectedArtist = "Test Artist"
	match.Stage = "artist"
	match.Score = 100
	match.RecordingID = TestRecordingID
	match.Title = "Test Song"
	match.Artist = "Test Artist"
	return &MatchBuilder{match: match}
}

// WithID sets the match ID
func (b *MatchBuilder) WithID(id string) *MatchBuilder {
	objID, _ := primitive.ObjectIDFromHex(id)
	b.match.ID = objID
	return b
}

// WithRawTitle sets the raw upload title
func (b *MatchBuilder) WithRawTitle(rawTitle string) *MatchBuilder {
	b.match.RawTitle = rawTitle
	return b
}

// WithRelease sets the release and release group identifiers
func (b *MatchBuilder) WithRelease(releaseID, releaseGroupID string) *MatchBuilder {
	b.match.ReleaseID = releaseID
	b.match.ReleaseGroupID = releaseGroupID
	return b
}

// WithCoverArt records a cover art URL
func (b *MatchBuilder) WithCoverArt(url string) *MatchBuilder {
	b.match.SetCoverArt(url, "image/jpeg", string(services.CoverArtRelease))
	return b
}

// WithScore sets the match score
func (b *MatchBuilder) WithScore(score int) *MatchBuilder {
	b.match.Score = score
	return b
}

// Build returns the built match
func (b *MatchBuilder) Build() *models.Match {
	return b.match
}

// RecordingBuilder provides a fluent interface for creating search hits
type RecordingBuilder struct {
	recording services.Recording
}

// NewRecordingBuilder creates a new recording builder with default values
func NewRecordingBuilder() *RecordingBuilder {
	return &RecordingBuilder{
		recording: services.Recording{
			ID:       TestRecordingID,
			Title:    "Test Song",
			Score:    100,
			LengthMs: 240000,
			Artists:  []string{"Test Artist"},
		},
	}
}

// WithID sets the recording ID
func (b *RecordingBuilder) WithID(id string) *RecordingBuilder {
	b.recording.ID = id
	return b
}

// WithTitle sets the recording title
func (b *RecordingBuilder) WithTitle(title string) *RecordingBuilder {
	b.recording.Title = title
	return b
}

// WithScore sets the service relevance score
func (b *RecordingBuilder) WithScore(score int) *RecordingBuilder {
	b.recording.Score = score
	return b
}

// WithLength sets the duration in milliseconds; zero means unknown
func (b *RecordingBuilder) WithLength(lengthMs int) *RecordingBuilder {
	b.recording.LengthMs = lengthMs
	return b
}

// WithArtists sets the credited artists
func (b *RecordingBuilder) WithArtists(artists ...string) *RecordingBuilder {
	b.recording.Artists = artists
	return b
}

// Build returns the built recording
func (b *RecordingBuilder) Build() services.Recording {
	return b.recording
}

// CreateTestDetails creates release-level metadata for TestRecordingID
func CreateTestDetails() *services.RecordingDetails {
	return &services.RecordingDetails{
		ID:             TestRecordingID,
		Title:          "Test Song",
		Artists:        []string{"Test Artist"},
		LengthMs:       240000,
		Album:          "Test Album",
		AlbumArtist:    "Test Artist",
		ReleaseID:      TestReleaseID,
		ReleaseGroupID: TestReleaseGroupID,
		Date:           "2020-07-22",
		Year:           2020,
		TrackNumber:    3,
		TrackCount:     12,
		DiscNumber:     1,
		ISRCs:          []string{TestISRC},
	}
}
