package enrich

import (
	"context"
	"errors"
	"log/slog"

	"songmeta/internal/logging"
	"songmeta/internal/models"
	"songmeta/internal/services"
)

// Metadata is everything known about a matched upload
type Metadata struct {
	MatchID     string   `json:"match_id,omitempty"`
	RecordingID string   `json:"recording_id"`
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	Album       string   `json:"album,omitempty"`
	AlbumArtist string   `json:"album_artist,omitempty"`
	Date        string   `json:"date,omitempty"`
	Year        int      `json:"year,omitempty"`
	TrackNumber int      `json:"track_number,omitempty"`
	TrackCount  int      `json:"track_count,omitempty"`
	DiscNumber  int      `json:"disc_number,omitempty"`
	ISRCs       []string `json:"isrcs,omitempty"`
	DurationMs  int      `json:"duration_ms,omitempty"`

	CoverArtURL      string `json:"cover_art_url,omitempty"`
	CoverArtMimeType string `json:"cover_art_mime_type,omitempty"`
	// CoverArt holds the image bytes when they were downloaded in this run
	CoverArt []byte `json:"-"`

	Score        int    `json:"score"`
	Stage        string `json:"stage"`
	CleanedTitle string `json:"cleaned_title"`
	// Cached is set when the metadata came from a stored match
	Cached bool `json:"cached,omitempty"`
}

// Enrich matches the request and collects release metadata and cover art
// for the winning recording. Detail and cover art failures are logged and
// leave the corresponding fields empty. A nil result with a nil error means
// no match.
func (e *Enricher) Enrich(ctx context.Context, req Request) (*Metadata, error) {
	logger := logging.FromContext(ctx, e.logger)

	if !req.Refresh {
		if meta := e.storedMetadata(ctx, logger, req); meta != nil {
			return meta, nil
		}
	}

	result, err := e.Match(ctx, req)
	if err != nil || result == nil {
		return nil, err
	}

	meta := &Metadata{
		RecordingID:  result.Recording.ID,
		Title:        result.Recording.Title,
		Artist:       services.JoinArtists(result.Recording.Artists),
		DurationMs:   result.Recording.LengthMs,
		Score:        result.Score,
		Stage:        string(result.Stage),
		CleanedTitle: result.CleanedTitle,
	}

	details, err := e.lookupDetails(ctx, logger, result.Recording.ID)
	if err != nil {
		return nil, err
	}
	if details != nil {
		applyDetails(meta, details)
	}

	art, err := e.lookupCoverArt(ctx, logger, details)
	if err != nil {
		return nil, err
	}
	var source string
	if art != nil {
		meta.CoverArt = art.Data
		meta.CoverArtURL = art.SourceURL
		meta.CoverArtMimeType = art.MimeType
		source = string(art.Source.Kind)
	}

	e.store(ctx, logger, req, result, meta, details, source)
	return meta, nil
}

// lookupDetails returns nil details for lookup failures; only context errors
// are returned.
func (e *Enricher) lookupDetails(ctx context.Context, logger *slog.Logger, recordingID string) (*services.RecordingDetails, error) {
	if e.details == nil {
		return nil, nil
	}

	details, err := e.details.GetRecording(ctx, recordingID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Recording lookup failed", "recording_id", recordingID, "error", err)
		return nil, nil
	}
	return details, nil
}

func (e *Enricher) lookupCoverArt(ctx context.Context, logger *slog.Logger, details *services.RecordingDetails) (*services.CoverArt, error) {
	ids := services.CoverArtCandidates(details)
	if e.coverArt == nil || len(ids) == 0 {
		return nil, nil
	}

	art, err := e.coverArt.FrontCover(ctx, ids)
	switch {
	case err == nil:
		return art, nil
	case errors.Is(err, services.ErrCoverArtNotFound):
		logger.Debug("No cover art", "recording_id", details.ID)
		return nil, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logger.Warn("Cover art download failed", "recording_id", details.ID, "error", err)
		return nil, nil
	}
}

// storedMetadata returns a previous result for identical input, if any
func (e *Enricher) storedMetadata(ctx context.Context, logger *slog.Logger, req Request) *Metadata {
	if e.repository == nil {
		return nil
	}

	stored, err := e.repository.FindByRawTitle(ctx, req.RawTitle)
	if err != nil {
		logger.Warn("Stored match lookup failed", "raw_title", req.RawTitle, "error", err)
		return nil
	}
	if stored == nil || !sameInput(stored, req) {
		return nil
	}

	logger.Debug("Using stored match", "raw_title", req.RawTitle, "match_id", stored.ID.Hex())
	meta := MetadataFromMatch(stored)
	meta.Cached = true
	return meta
}

func (e *Enricher) store(ctx context.Context, logger *slog.Logger, req Request, result *MatchResult, meta *Metadata, details *services.RecordingDetails, coverSource string) {
	if e.repository == nil {
		return
	}

	match := models.NewMatch(req.RawTitle)
	match.ExplicitArtist = req.Artist
	match.Uploader = req.Uploader
	if req.DurationSeconds != nil {
		match.DurationSeconds = *req.DurationSeconds
	}
	match.CleanedTitle = result.CleanedTitle
	match.DetectedArtist = result.DetectedArtist
	match.Stage = string(result.Stage)
	match.Score = result.Score

	match.RecordingID = meta.RecordingID
	match.Title = meta.Title
	match.Artist = meta.Artist
	match.Album = meta.Album
	match.AlbumArtist = meta.AlbumArtist
	match.Date = meta.Date
	match.Year = meta.Year
	match.TrackNumber = meta.TrackNumber
	match.TrackCount = meta.TrackCount
	match.DiscNumber = meta.DiscNumber
	match.ISRCs = meta.ISRCs
	match.DurationMs = meta.DurationMs
	if details != nil {
		match.ReleaseID = details.ReleaseID
		match.ReleaseGroupID = details.ReleaseGroupID
	}
	if meta.CoverArtURL != "" {
		match.SetCoverArt(meta.CoverArtURL, meta.CoverArtMimeType, coverSource)
	}

	if err := e.repository.Save(ctx, match); err != nil {
		logger.Warn("Failed to store match", "raw_title", req.RawTitle, "error", err)
		return
	}
	meta.MatchID = match.ID.Hex()
}

func applyDetails(meta *Metadata, details *services.RecordingDetails) {
	if details.Title != "" {
		meta.Title = details.Title
	}
	if artist := details.ArtistString(); artist != "" {
		meta.Artist = artist
	}
	if details.LengthMs > 0 {
		meta.DurationMs = details.LengthMs
	}
	meta.Album = details.Album
	meta.AlbumArtist = details.AlbumArtist
	meta.Date = details.Date
	meta.Year = details.Year
	meta.TrackNumber = details.TrackNumber
	meta.TrackCount = details.TrackCount
	meta.DiscNumber = details.DiscNumber
	meta.ISRCs = details.ISRCs
}

// MetadataFromMatch converts a stored match back to Metadata
func MetadataFromMatch(m *models.Match) *Metadata {
	meta := &Metadata{
		MatchID:      m.ID.Hex(),
		RecordingID:  m.RecordingID,
		Title:        m.Title,
		Artist:       m.Artist,
		Album:        m.Album,
		AlbumArtist:  m.AlbumArtist,
		Date:         m.Date,
		Year:         m.Year,
		TrackNumber:  m.TrackNumber,
		TrackCount:   m.TrackCount,
		DiscNumber:   m.DiscNumber,
		ISRCs:        m.ISRCs,
		DurationMs:   m.DurationMs,
		Score:        m.Score,
		Stage:        m.Stage,
		CleanedTitle: m.CleanedTitle,
	}
	if m.HasCoverArt() {
		meta.CoverArtURL = m.CoverArt.URL
		meta.CoverArtMimeType = m.CoverArt.MimeType
	}
	return meta
}

func sameInput(m *models.Match, req Request) bool {
	if m.ExplicitArtist != req.Artist || m.Uploader != req.Uploader {
		return false
	}
	var duration float64
	if req.DurationSeconds != nil {
		duration = *req.DurationSeconds
	}
	return m.DurationSeconds == duration
}
