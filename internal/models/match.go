package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CurrentSchemaVersion = 1

// Match is a stored pipeline result: the upload as given, what the pipeline
// made of it and the recording metadata it resolved to.
type Match struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchemaVersion int                `bson:"schema_version" json:"schema_version"`

	// Input
	RawTitle        string  `bson:"raw_title" json:"raw_title"`
	ExplicitArtist  string  `bson:"explicit_artist,omitempty" json:"explicit_artist,omitempty"`
	Uploader        string  `bson:"uploader,omitempty" json:"uploader,omitempty"`
	DurationSeconds float64 `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`

	// Normalization and search outcome
	CleanedTitle   string `bson:"cleaned_title" json:"cleaned_title"`
	DetectedArtist string `bson:"detected_artist,omitempty" json:"detected_artist,omitempty"`
	Stage          string `bson:"stage" json:"stage"`
	Score          int    `bson:"score" json:"score"`

	// Resolved recording
	RecordingID    string   `bson:"recording_id" json:"recording_id"`
	Title          string   `bson:"title" json:"title"`
	Artist         string   `bson:"artist" json:"artist"`
	Album          string   `bson:"album,omitempty" json:"album,omitempty"`
	AlbumArtist    string   `bson:"album_artist,omitempty" json:"album_artist,omitempty"`
	ReleaseID      string   `bson:"release_id,omitempty" json:"release_id,omitempty"`
	ReleaseGroupID string   `bson:"release_group_id,omitempty" json:"release_group_id,omitempty"`
	Date           string   `bson:"date,omitempty" json:"date,omitempty"`
	Year           int      `bson:"year,omitempty" json:"year,omitempty"`
	TrackNumber    int      `bson:"track_number,omitempty" json:"track_number,omitempty"`
	TrackCount     int      `bson:"track_count,omitempty" json:"track_count,omitempty"`
	DiscNumber     int      `bson:"disc_number,omitempty" json:"disc_number,omitempty"`
	ISRCs          []string `bson:"isrcs,omitempty" json:"isrcs,omitempty"`
	DurationMs     int      `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`

	CoverArt *CoverArtInfo `bson:"cover_art,omitempty" json:"cover_art,omitempty"`
	// Last time the archive was asked and had nothing
	CoverArtCheckedAt *time.Time `bson:"cover_art_checked_at,omitempty" json:"cover_art_checked_at,omitempty"`

	// Timestamps
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CoverArtInfo records where the front cover came from
type CoverArtInfo struct {
	URL       string    `bson:"url" json:"url"`
	MimeType  string    `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	Source    string    `bson:"source" json:"source"` // "release" or "release-group"
	FetchedAt time.Time `bson:"fetched_at" json:"fetched_at"`
}

// NewMatch creates a Match for a raw upload title
func NewMatch(rawTitle string) *Match {
	now := time.Now()
	return &Match{
		SchemaVersion: CurrentSchemaVersion,
		RawTitle:      rawTitle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetCoverArt records the cover art location and bumps UpdatedAt
func (m *Match) SetCoverArt(url, mimeType, source string) {
	now := time.Now()
	m.CoverArt = &CoverArtInfo{
		URL:       url,
		MimeType:  mimeType,
		Source:    source,
		FetchedAt: now,
	}
	m.UpdatedAt = now
}

// MarkCoverArtChecked records a lookup that found no cover so the match
// moves behind ones that were never tried
func (m *Match) MarkCoverArtChecked() {
	now := time.Now()
	m.CoverArtCheckedAt = &now
	m.UpdatedAt = now
}

// HasCoverArt reports whether a cover has been recorded
func (m *Match) HasCoverArt() bool {
	return m.CoverArt != nil && m.CoverArt.URL != ""
}

// CanFetchCoverArt reports whether the match carries an identifier the
// cover art archive can be asked about
func (m *Match) CanFetchCoverArt() bool {
	return m.ReleaseID != "" || m.ReleaseGroupID != ""
}
