// Package titles turns noisy upload titles into a song title and an artist guess.
package titles

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// bracketPair is one opening/closing bracket combination
type bracketPair struct {
	open, close string
}

var bracketPairs = []bracketPair{
	{"(", ")"},
	{"（", "）"},
	{"[", "]"},
	{"【", "】"},
}

var (
	// noisePattern matches annotations that carry no title information
	noisePattern = regexp.MustCompile(`(?i)(\bofficial\b|\bm/?v\b|\bpv\b|\blyrics?\b|\baudio\b|\bvideo\b|\b\d{3,4}p\b|\b[48]k\b|\bhd\b|\bhq\b|\bvisuali[sz]er\b|\bsubs?\b|\bsubtitles?\b|字幕|\bexplicit\b|\bfeat\b|\bfeat\.|\bfeaturing\b|\bft\b|\bft\.|\boff\s*vocal\b|\binstrumental\b|\binst\b|\bkaraoke\b|\bremix(e[sd])?\b|\blive\b|\bcover(ed)?\b|歌ってみた|歌詞|中字|\bfull\b|\bshort\s*ver|\bver\.|\bversion\b|\bremaster(ed)?\b)`)

	// bracketSpans holds one non-greedy span matcher per bracket pair. The inner
	// class excludes both brackets of the pair, so only the nearest enclosing
	// pair is consumed.
	bracketSpans = compileBracketSpans()

	emptyBrackets = regexp.MustCompile(`\(\s*\)|（\s*）|\[\s*\]|【\s*】`)

	quotedTitle = regexp.MustCompile(`^(.*?)[「『]([^」』]+)[」』](.*)$`)

	trailingVideoToken = regexp.MustCompile(`(?i)(^|[\s\-_|/])(music\s*video|m/?v|pv)\s*$`)

	leftoverBrackets = strings.NewReplacer(
		"(", " ", ")", " ", "（", " ", "）", " ",
		"[", " ", "]", " ", "【", " ", "】", " ",
		"「", " ", "」", " ", "『", " ", "』", " ",
		"\"", " ", "“", " ", "”", " ",
	)
)

// titleSeparators are tried in order; the first one present wins
var titleSeparators = []string{" - ", " – ", " / "}

const (
	edgeSeparators      = " \t-–—_|/:・~"
	trailingPunctuation = " \t.,;:_-–—~|/\\・"
)

func compileBracketSpans() []*regexp.Regexp {
	spans := make([]*regexp.Regexp, 0, len(bracketPairs))
	for _, p := range bracketPairs {
		o, c := regexp.QuoteMeta(p.open), regexp.QuoteMeta(p.close)
		spans = append(spans, regexp.MustCompile(o+`[^`+o+c+`]*`+c))
	}
	return spans
}

// Normalize extracts a cleaned song title and, when the title carries one, an
// artist name. An empty artist means none was detected. The returned title is
// never empty for a non-empty input: if cleaning removes everything the raw
// title is returned unchanged.
func Normalize(raw string) (title string, artist string) {
	if raw == "" {
		return "", ""
	}

	working := norm.NFC.String(raw)
	working = stripNoiseBrackets(working)
	working = emptyBrackets.ReplaceAllString(working, " ")

	title, artist = splitArtist(working)

	if artist != "" {
		title = removeArtistFromTitle(title, artist)
	}

	title = finishTitle(title)
	if title == "" {
		return raw, artist
	}
	return title, artist
}

// stripNoiseBrackets drops bracketed spans whose content is release noise
func stripNoiseBrackets(s string) string {
	for _, span := range bracketSpans {
		s = span.ReplaceAllStringFunc(s, func(match string) string {
			if noisePattern.MatchString(innerText(match)) {
				return " "
			}
			return match
		})
	}
	return s
}

// innerText strips the first and last rune of a bracketed span
func innerText(span string) string {
	runes := []rune(span)
	if len(runes) < 2 {
		return ""
	}
	return string(runes[1 : len(runes)-1])
}

// splitArtist separates artist and title using quote brackets first, then
// the separator list.
func splitArtist(s string) (title, artist string) {
	if m := quotedTitle.FindStringSubmatch(s); m != nil {
		inside := strings.TrimSpace(m[2])
		outside := cleanArtist(m[1])
		if outside == "" {
			outside = cleanArtist(m[3])
		}
		if inside != "" {
			return inside, outside
		}
	}

	for _, sep := range titleSeparators {
		idx := strings.Index(s, sep)
		if idx < 0 {
			continue
		}
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(sep):])
		if left == "" || right == "" {
			continue
		}
		if sep == " / " {
			return left, cleanArtist(right)
		}
		return right, cleanArtist(left)
	}

	return s, ""
}

// removeArtistFromTitle drops a repeated artist name from the title unless
// that would leave nothing behind. The name only counts where it is not glued
// to neighbouring letters, so "Ado" is not cut out of "Adore".
func removeArtistFromTitle(title, artist string) string {
	// Case-insensitive search only when lowering keeps byte offsets intact
	haystack, needle := title, artist
	lowerTitle, lowerArtist := strings.ToLower(title), strings.ToLower(artist)
	if len(lowerTitle) == len(title) && len(lowerArtist) == len(artist) {
		haystack, needle = lowerTitle, lowerArtist
	}

	idx := indexWord(haystack, needle)
	if idx < 0 {
		return title
	}

	stripped := title[:idx] + " " + title[idx+len(artist):]
	stripped = strings.Trim(collapseSpaces(stripped), edgeSeparators)
	if stripped == "" {
		return title
	}
	return stripped
}

// indexWord returns the first index of word in s that does not run into an
// adjacent word character on either side, or -1.
func indexWord(s, word string) int {
	if word == "" {
		return -1
	}
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)

	for offset := 0; offset <= len(s)-len(word); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return -1
		}
		i += offset
		before, _ := utf8.DecodeLastRuneInString(s[:i])
		after, _ := utf8.DecodeRuneInString(s[i+len(word):])
		if !(isWordRune(before) && isWordRune(first)) && !(isWordRune(after) && isWordRune(last)) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		offset = i + size
	}
	return -1
}

// isWordRune reports letters and digits of space-delimited scripts. Kana and
// Han are excluded since those titles run words together.
func isWordRune(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	return unicode.In(r, unicode.Latin, unicode.Greek, unicode.Cyrillic, unicode.Hangul) && unicode.IsLetter(r)
}

// finishTitle removes leftover brackets, trailing video tokens and punctuation
func finishTitle(s string) string {
	s = leftoverBrackets.Replace(s)
	s = collapseSpaces(s)

	for {
		trimmed := trailingVideoToken.ReplaceAllString(s, "$1")
		trimmed = strings.TrimRight(trimmed, trailingPunctuation)
		if trimmed == s {
			break
		}
		s = trimmed
	}

	s = strings.TrimLeft(s, edgeSeparators)
	return collapseSpaces(s)
}

func cleanArtist(s string) string {
	return strings.Trim(collapseSpaces(leftoverBrackets.Replace(s)), edgeSeparators)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
