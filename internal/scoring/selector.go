package scoring

import (
	"sort"

	"songmeta/internal/services"
)

// Scored is a candidate with its score
type Scored struct {
	Recording services.Recording `json:"recording"`
	Score     int                `json:"score"`
	Breakdown Breakdown          `json:"breakdown"`
}

// Rank scores every candidate, drops ineligible ones and orders the rest by
// score. Equal scores prefer a known duration, then the lower identifier.
func (s *Scorer) Rank(candidates []services.Recording, target Target) []Scored {
	ranked := make([]Scored, 0, len(candidates))
	for _, rec := range candidates {
		b := s.Breakdown(rec, target)
		if !b.Eligible {
			continue
		}
		ranked = append(ranked, Scored{Recording: rec, Score: b.Final, Breakdown: b})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Recording.HasDuration() != b.Recording.HasDuration() {
			return a.Recording.HasDuration()
		}
		return a.Recording.ID < b.Recording.ID
	})
	return ranked
}

// Select returns the top-ranked candidate when its score reaches threshold
func (s *Scorer) Select(candidates []services.Recording, target Target, threshold int) (Scored, bool) {
	ranked := s.Rank(candidates, target)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return Scored{}, false
	}
	return ranked[0], true
}

// Best returns the top-ranked eligible candidate regardless of its score
func (s *Scorer) Best(candidates []services.Recording, target Target) (Scored, bool) {
	return s.Select(candidates, target, 0)
}
