package titles

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownArtist is the placeholder some sources use when no artist is known.
const UnknownArtist = "unknown"

// CandidateArtists merges the artist hints into a deduplicated list of
// lower-cased names, longest first. Longer names tend to be more specific and
// are tried first; shorter ones stay available as fallbacks. Blank hints and
// the "unknown" placeholder are dropped.
func CandidateArtists(detected, uploader, explicit string) []string {
	lower := cases.Lower(language.Und)

	seen := make(map[string]struct{}, 3)
	names := make([]string, 0, 3)
	for _, hint := range []string{detected, uploader, explicit} {
		name := NormalizeArtistName(lower.String(hint))
		if name == "" || name == UnknownArtist {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return utf8.RuneCountInString(names[i]) > utf8.RuneCountInString(names[j])
	})
	return names
}

// NormalizeArtistName trims and collapses internal whitespace.
func NormalizeArtistName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
