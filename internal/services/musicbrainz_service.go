package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// MusicBrainz web service defaults
const (
	DefaultMusicBrainzURL = "https://musicbrainz.org/ws/2"
	maxSearchLimit        = 100
	lookupIncludes        = "artist-credits+isrcs+releases+release-groups+media"
)

// MusicBrainzService implements RecordingSearcher and RecordingDetailer
type MusicBrainzService struct {
	client  *resty.Client
	limiter *rate.Limiter

	mu      sync.Mutex
	lastErr error
}

// NewMusicBrainzService creates a MusicBrainz client. Requests are not retried;
// the caller decides what a failed attempt means. interval spaces requests
// across every caller sharing the service; zero disables pacing.
func NewMusicBrainzService(baseURL, userAgent string, timeout, interval time.Duration) *MusicBrainzService {
	if baseURL == "" {
		baseURL = DefaultMusicBrainzURL
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &MusicBrainzService{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SearchRecordings searches recordings with a Lucene query
func (s *MusicBrainzService) SearchRecordings(ctx context.Context, query SearchQuery, limit int) ([]Recording, error) {
	q := query.String()
	if q == "" {
		return nil, &ServiceError{
			Service:   "musicbrainz",
			Operation: "search",
			Message:   "empty search query",
		}
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result mbSearchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query": q,
			"limit": strconv.Itoa(limit),
			"fmt":   "json",
		}).
		SetResult(&result).
		Get("/recording")

	if err != nil {
		serviceErr := &ServiceError{
			Service:   "musicbrainz",
			Operation: "search",
			Message:   "request failed",
			Err:       err,
		}
		s.observe(ctx, serviceErr)
		return nil, serviceErr
	}

	if resp.StatusCode() != http.StatusOK {
		serviceErr := &ServiceError{
			Service:    "musicbrainz",
			Operation:  "search",
			Message:    fmt.Sprintf("unexpected response for query %q", q),
			StatusCode: resp.StatusCode(),
		}
		if resp.StatusCode() == http.StatusBadRequest {
			s.observe(ctx, nil)
		} else {
			s.observe(ctx, serviceErr)
		}
		return nil, serviceErr
	}
	s.observe(ctx, nil)

	recordings := make([]Recording, 0, len(result.Recordings))
	for _, rec := range result.Recordings {
		if rec.ID == "" {
			continue
		}
		recordings = append(recordings, rec.toRecording())
	}
	return recordings, nil
}

// GetRecording looks up a recording with its releases
func (s *MusicBrainzService) GetRecording(ctx context.Context, id string) (*RecordingDetails, error) {
	if id == "" {
		return nil, &ServiceError{
			Service:   "musicbrainz",
			Operation: "get_recording",
			Message:   "recording ID cannot be empty",
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rec mbRecording
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParams(map[string]string{
			"inc": lookupIncludes,
			"fmt": "json",
		}).
		SetResult(&rec).
		Get("/recording/{id}")

	if err != nil {
		serviceErr := &ServiceError{
			Service:   "musicbrainz",
			Operation: "get_recording",
			Message:   "request failed",
			Err:       err,
		}
		s.observe(ctx, serviceErr)
		return nil, serviceErr
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		s.observe(ctx, nil)
	case http.StatusNotFound, http.StatusBadRequest:
		s.observe(ctx, nil)
		return nil, &ServiceError{
			Service:    "musicbrainz",
			Operation:  "get_recording",
			Message:    "recording " + id,
			StatusCode: resp.StatusCode(),
			Err:        ErrNotFound,
		}
	default:
		serviceErr := &ServiceError{
			Service:    "musicbrainz",
			Operation:  "get_recording",
			Message:    "unexpected response",
			StatusCode: resp.StatusCode(),
		}
		s.observe(ctx, serviceErr)
		return nil, serviceErr
	}

	return rec.toDetails(), nil
}

// observe records the outcome of the latest upstream exchange. Failures
// caused by the caller's own context are not the service's fault.
func (s *MusicBrainzService) observe(ctx context.Context, err error) {
	if err != nil && ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Health reports the outcome of the most recent request without calling
// out. It is nil until a request fails.
func (s *MusicBrainzService) Health(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// MusicBrainz API response structures
type mbSearchResponse struct {
	Count      int           `json:"count"`
	Recordings []mbRecording `json:"recordings"`
}

type mbRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Score        flexInt          `json:"score"`
	Length       flexInt          `json:"length"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	Releases     []mbRelease      `json:"releases"`
	ISRCs        []string         `json:"isrcs"`
}

type mbArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type mbRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	Date         string           `json:"date"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	ReleaseGroup struct {
		ID          string `json:"id"`
		PrimaryType string `json:"primary-type"`
	} `json:"release-group"`
	Media []mbMedium `json:"media"`
}

type mbMedium struct {
	Position    flexInt   `json:"position"`
	TrackCount  flexInt   `json:"track-count"`
	TrackOffset *int      `json:"track-offset"`
	Tracks      []mbTrack `json:"tracks"`
	Track       []mbTrack `json:"track"`
}

type mbTrack struct {
	Number   string  `json:"number"`
	Position flexInt `json:"position"`
}

func creditNames(credits []mbArtistCredit) []string {
	names := make([]string, 0, len(credits))
	for _, credit := range credits {
		name := credit.Name
		if name == "" {
			name = credit.Artist.Name
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (r mbRecording) toRecording() Recording {
	return Recording{
		ID:       r.ID,
		Title:    r.Title,
		Score:    int(r.Score),
		LengthMs: max(int(r.Length), 0),
		Artists:  creditNames(r.ArtistCredit),
	}
}

func (r mbRecording) toDetails() *RecordingDetails {
	details := &RecordingDetails{
		ID:       r.ID,
		Title:    r.Title,
		Artists:  creditNames(r.ArtistCredit),
		LengthMs: max(int(r.Length), 0),
		ISRCs:    r.ISRCs,
	}

	release := pickRelease(r.Releases)
	if release == nil {
		return details
	}

	details.Album = release.Title
	details.ReleaseID = release.ID
	details.ReleaseGroupID = release.ReleaseGroup.ID
	details.Date = release.Date
	details.Year = parseYear(release.Date)
	details.AlbumArtist = JoinArtists(creditNames(release.ArtistCredit))

	if len(release.Media) > 0 {
		medium := release.Media[0]
		details.DiscNumber = int(medium.Position)
		details.TrackCount = int(medium.TrackCount)
		details.TrackNumber = medium.trackNumber()
	}

	return details
}

// pickRelease prefers the first official release, then the first release
func pickRelease(releases []mbRelease) *mbRelease {
	for i := range releases {
		if strings.EqualFold(releases[i].Status, "official") {
			return &releases[i]
		}
	}
	if len(releases) > 0 {
		return &releases[0]
	}
	return nil
}

func (m mbMedium) trackNumber() int {
	tracks := m.Tracks
	if len(tracks) == 0 {
		tracks = m.Track
	}
	if len(tracks) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(tracks[0].Number)); err == nil {
			return n
		}
		if tracks[0].Position > 0 {
			return int(tracks[0].Position)
		}
	}
	if m.TrackOffset != nil {
		return *m.TrackOffset + 1
	}
	return 0
}

// parseYear extracts the year from "2023", "2023-01" or "2023-01-01"
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1000 {
		return 0
	}
	return year
}
