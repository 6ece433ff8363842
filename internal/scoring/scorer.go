// Package scoring ranks recording search hits against what is known about the
// upload being matched.
package scoring

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"songmeta/internal/config"
	"songmeta/internal/services"
)

// Ineligible is the score of a candidate whose service relevance is too low
const Ineligible = -1

const variousArtists = "various artists"

// Target is what is known about the upload
type Target struct {
	// DurationSeconds is nil when the upload length is unknown
	DurationSeconds *float64
	// KnownArtists are the explicit artist and the uploader, as given
	KnownArtists []string
}

// HasDuration reports whether a usable target duration is set
func (t Target) HasDuration() bool {
	return t.DurationSeconds != nil && *t.DurationSeconds > 0
}

// Artist match kinds reported in a Breakdown
const (
	ArtistMatchNone     = ""
	ArtistMatchStrong   = "strong"
	ArtistMatchWeak     = "weak"
	ArtistMatchMismatch = "mismatch"
)

// Breakdown lists every adjustment applied to a candidate's base score
type Breakdown struct {
	Base        int    `json:"base"`
	Duration    int    `json:"duration"`
	Artist      int    `json:"artist"`
	ArtistMatch string `json:"artist_match,omitempty"`
	Compilation int    `json:"compilation"`
	Final       int    `json:"final"`
	Eligible    bool   `json:"eligible"`
}

// Scorer computes deterministic match scores from the matching weights
type Scorer struct {
	cfg       *config.MatchingConfig
	stopWords map[string]struct{}
}

// NewScorer creates a scorer; nil cfg uses the built-in weights
func NewScorer(cfg *config.MatchingConfig) *Scorer {
	if cfg == nil {
		cfg = config.DefaultMatchingConfig()
	}
	stopWords := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stopWords[strings.ToLower(w)] = struct{}{}
	}
	return &Scorer{cfg: cfg, stopWords: stopWords}
}

// AcceptanceThreshold is the minimum top score the pipeline accepts
func (s *Scorer) AcceptanceThreshold() int {
	return s.cfg.AcceptanceThreshold
}

// Score returns the candidate's score, or Ineligible
func (s *Scorer) Score(rec services.Recording, target Target) int {
	return s.Breakdown(rec, target).Final
}

// Breakdown scores a candidate and reports each component
func (s *Scorer) Breakdown(rec services.Recording, target Target) Breakdown {
	b := Breakdown{Base: rec.Score}
	if rec.Score < s.cfg.MinBaseScore {
		b.Final = Ineligible
		return b
	}
	b.Eligible = true

	b.Duration = s.durationAdjustment(rec, target)

	lower := cases.Lower(language.Und)
	known := lowerNames(lower, target.KnownArtists)
	credited := lowerNames(lower, rec.Artists)
	compilation := containsName(credited, variousArtists)

	if len(known) > 0 {
		b.Artist, b.ArtistMatch = s.artistAdjustment(known, credited, compilation)
	}

	if compilation {
		if len(known) > 0 {
			b.Compilation = -s.cfg.CompilationPenalty
		} else {
			b.Compilation = -s.cfg.CompilationPenaltyNoArtist
		}
	}

	b.Final = max(b.Base+b.Duration+b.Artist+b.Compilation, 0)
	return b
}

func (s *Scorer) durationAdjustment(rec services.Recording, target Target) int {
	if !target.HasDuration() {
		return 0
	}
	if !rec.HasDuration() {
		return -s.cfg.MissingDurationPenalty
	}

	diff := math.Abs(*target.DurationSeconds - rec.DurationSeconds())
	tolerance := s.cfg.DurationToleranceSeconds
	if diff > tolerance {
		return -int(math.Floor((diff - tolerance) * s.cfg.DurationPenaltyPerSecond))
	}
	return max(0, s.cfg.MaxDurationBonus-int(math.Floor(diff)))
}

func (s *Scorer) artistAdjustment(known, credited []string, compilation bool) (int, string) {
	knownCore := s.coreWords(known)
	for word := range s.coreWords(credited) {
		if _, ok := knownCore[word]; ok {
			return s.cfg.StrongArtistBonus, ArtistMatchStrong
		}
	}

	for _, k := range known {
		for _, c := range credited {
			if c == "" {
				continue
			}
			if strings.Contains(c, k) || strings.Contains(k, c) {
				return s.cfg.WeakArtistBonus, ArtistMatchWeak
			}
		}
	}

	if compilation {
		return 0, ArtistMatchNone
	}
	return -s.cfg.ArtistMismatchPenalty, ArtistMatchMismatch
}

var coreDelimiters = strings.NewReplacer("/", " ", ",", " ", "-", " ")

// coreWords splits names into words with delimiters and stop words removed
func (s *Scorer) coreWords(names []string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, name := range names {
		for _, w := range strings.Fields(coreDelimiters.Replace(name)) {
			if _, stop := s.stopWords[w]; stop {
				continue
			}
			words[w] = struct{}{}
		}
	}
	return words
}

// lowerNames lower-cases and trims names, dropping blanks
func lowerNames(lower cases.Caser, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(lower.String(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func containsName(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}
