package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultCoverArtURL is the Cover Art Archive endpoint
const DefaultCoverArtURL = "https://coverartarchive.org"

// ErrCoverArtNotFound is returned when none of the identifiers has front art
var ErrCoverArtNotFound = errors.New("cover art not found")

// CoverArtKind is the entity type an identifier refers to
type CoverArtKind string

const (
	CoverArtRelease      CoverArtKind = "release"
	CoverArtReleaseGroup CoverArtKind = "release-group"
)

// CoverArtID is one identifier to try for front cover art
type CoverArtID struct {
	Kind CoverArtKind
	ID   string
}

// CoverArt is a downloaded front cover image
type CoverArt struct {
	Data      []byte
	MimeType  string
	SourceURL string
	Source    CoverArtID
}

// CoverArtFetcher downloads front cover art
type CoverArtFetcher interface {
	FrontCover(ctx context.Context, ids []CoverArtID) (*CoverArt, error)
}

// CoverArtCandidates lists the identifiers to try for a recording, release first
func CoverArtCandidates(details *RecordingDetails) []CoverArtID {
	if details == nil {
		return nil
	}
	var ids []CoverArtID
	if details.ReleaseID != "" {
		ids = append(ids, CoverArtID{Kind: CoverArtRelease, ID: details.ReleaseID})
	}
	if details.ReleaseGroupID != "" {
		ids = append(ids, CoverArtID{Kind: CoverArtReleaseGroup, ID: details.ReleaseGroupID})
	}
	return ids
}

// CoverArtService implements CoverArtFetcher against the Cover Art Archive
type CoverArtService struct {
	client  *resty.Client
	baseURL string
	limiter *rate.Limiter
}

// NewCoverArtService creates a Cover Art Archive client. interval spaces
// consecutive downloads; zero disables pacing.
func NewCoverArtService(baseURL, userAgent string, timeout, interval time.Duration) *CoverArtService {
	if baseURL == "" {
		baseURL = DefaultCoverArtURL
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	return &CoverArtService{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FrontCover walks ids in order and returns the first front image found.
// A missing image moves on to the next identifier; any other failure,
// including a timeout, ends the lookup.
func (s *CoverArtService) FrontCover(ctx context.Context, ids []CoverArtID) (*CoverArt, error) {
	for _, id := range ids {
		if id.ID == "" {
			continue
		}

		art, err := s.fetchFront(ctx, id)
		if errors.Is(err, ErrCoverArtNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return art, nil
	}

	return nil, ErrCoverArtNotFound
}

func (s *CoverArtService) fetchFront(ctx context.Context, id CoverArtID) (*CoverArt, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s/front", s.baseURL, id.Kind, id.ID)
	resp, err := s.client.R().
		SetContext(ctx).
		Get(url)

	if err != nil {
		return nil, &ServiceError{
			Service:   "coverart",
			Operation: "front_cover",
			Message:   string(id.Kind) + " " + id.ID,
			Err:       err,
		}
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, ErrCoverArtNotFound
	default:
		return nil, &ServiceError{
			Service:    "coverart",
			Operation:  "front_cover",
			Message:    string(id.Kind) + " " + id.ID,
			StatusCode: resp.StatusCode(),
		}
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, ErrCoverArtNotFound
	}

	mime := resp.Header().Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}

	source := url
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		source = resp.RawResponse.Request.URL.String()
	}

	return &CoverArt{
		Data:      data,
		MimeType:  mime,
		SourceURL: source,
		Source:    id,
	}, nil
}
