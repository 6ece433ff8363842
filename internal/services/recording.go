package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RecordingSearcher is the recording-search collaborator
type RecordingSearcher interface {
	// SearchRecordings returns at most limit recordings matching query
	SearchRecordings(ctx context.Context, query SearchQuery, limit int) ([]Recording, error)
}

// RecordingDetailer fetches release-level metadata for a matched recording
type RecordingDetailer interface {
	GetRecording(ctx context.Context, id string) (*RecordingDetails, error)
}

// Recording is one search hit. Optional fields are defaulted when the
// response is decoded: a zero LengthMs means the duration is unknown.
type Recording struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Score    int      `json:"score"`
	LengthMs int      `json:"length_ms,omitempty"`
	Artists  []string `json:"artists"`
}

// HasDuration reports whether the service returned a duration
func (r Recording) HasDuration() bool {
	return r.LengthMs > 0
}

// DurationSeconds returns the duration in seconds, or 0 when unknown
func (r Recording) DurationSeconds() float64 {
	return float64(r.LengthMs) / 1000.0
}

// RecordingDetails is the release-level metadata of a recording
type RecordingDetails struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Artists        []string `json:"artists"`
	LengthMs       int      `json:"length_ms,omitempty"`
	Album          string   `json:"album,omitempty"`
	AlbumArtist    string   `json:"album_artist,omitempty"`
	ReleaseID      string   `json:"release_id,omitempty"`
	ReleaseGroupID string   `json:"release_group_id,omitempty"`
	Date           string   `json:"date,omitempty"`
	Year           int      `json:"year,omitempty"`
	TrackNumber    int      `json:"track_number,omitempty"`
	TrackCount     int      `json:"track_count,omitempty"`
	DiscNumber     int      `json:"disc_number,omitempty"`
	ISRCs          []string `json:"isrcs,omitempty"`
}

// ArtistString joins the credited artists for display
func (d *RecordingDetails) ArtistString() string {
	return JoinArtists(d.Artists)
}

// SearchQuery is either a field-qualified (title, artist) query or free text
type SearchQuery struct {
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	FreeText string `json:"free_text,omitempty"`
}

// IsFreeText reports whether the query is sent unqualified
func (q SearchQuery) IsFreeText() bool {
	return q.FreeText != ""
}

// String renders the query in the search service's Lucene syntax
func (q SearchQuery) String() string {
	if q.FreeText != "" {
		return escapeLucene(q.FreeText)
	}

	var parts []string
	if q.Title != "" {
		parts = append(parts, fmt.Sprintf("recording:(%s)", escapeLucene(q.Title)))
	}
	if q.Artist != "" {
		parts = append(parts, fmt.Sprintf("artist:(%s)", escapeLucene(q.Artist)))
	}
	return strings.Join(parts, " ")
}

const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

func escapeLucene(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(luceneSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// JoinArtists joins credited artists for display
func JoinArtists(artists []string) string {
	return strings.Join(artists, ", ")
}

// ErrNotFound is returned when the service has no such entity
var ErrNotFound = errors.New("not found")

// ServiceError represents an error from an external service
type ServiceError struct {
	Service    string
	Operation  string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Service + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// flexInt decodes integers that some responses encode as strings
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if n == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}
