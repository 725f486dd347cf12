// Package filter redacts banned words from chat text.
//
// The filter is pure: it receives the banned-word list on every call and
// never touches storage, so callers decide how fresh the list is.
//
// Two matching modes exist side by side. The realtime path matches whole
// words only ("spam" does not hit "spammer"), the REST path matches any
// substring. Which one a path uses is configuration (see config.Moderation).
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mask replaces every banned occurrence regardless of its length.
const Mask = "***"

// Mode selects how a banned word is located in the text.
type Mode string

const (
	ModeWholeWord Mode = "word"
	ModeSubstring Mode = "substring"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWholeWord:
		return ModeWholeWord, nil
	case ModeSubstring:
		return ModeSubstring, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want %q or %q)", s, ModeWholeWord, ModeSubstring)
	}
}

// Result is the outcome of filtering one message.
type Result struct {
	// Text is the input with every banned occurrence replaced by Mask.
	Text string
	// Matched is the first banned word (in list order) found in the input.
	// Empty when nothing matched.
	Matched string
}

// Found reports whether at least one banned word was present.
func (r Result) Found() bool {
	return r.Matched != ""
}

// Filter applies a fixed matching mode.
type Filter struct {
	mode Mode
}

// New returns a Filter using the given mode. An unknown mode falls back to
// whole-word matching.
func New(mode Mode) *Filter {
	if mode != ModeSubstring {
		mode = ModeWholeWord
	}
	return &Filter{mode: mode}
}

// Mode returns the matching mode of the filter.
func (f *Filter) Mode() Mode {
	return f.mode
}

// Apply redacts text against words. Matching is case-insensitive. Only the
// first matching word is reported, but every occurrence of every banned word
// is masked. Text outside the matched spans is left untouched.
func (f *Filter) Apply(text string, words []string) Result {
	var (
		spans   [][2]int
		matched string
	)

	for _, word := range words {
		word = Normalize(word)
		if word == "" {
			continue
		}

		found := f.find(text, word)
		if len(found) == 0 {
			continue
		}
		if matched == "" {
			matched = word
		}
		spans = append(spans, found...)
	}

	if len(spans) == 0 {
		return Result{Text: text}
	}

	return Result{Text: redact(text, spans), Matched: matched}
}

// find returns the byte spans of every occurrence of word in text.
func (f *Filter) find(text, word string) [][2]int {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))

	var spans [][2]int
	pos := 0
	for pos <= len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]

		if f.mode == ModeSubstring || isWordBoundary(text, start, end) {
			spans = append(spans, [2]int{start, end})
			pos = end
			continue
		}

		// Rejected candidate: retry one rune later so an overlapping
		// occurrence with valid boundaries is not skipped.
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		pos = start + size
	}
	return spans
}

// redact replaces each span with Mask. Overlapping spans (e.g. "spam" and
// "spammer" on the same text) collapse into a single mask.
func redact(text string, spans [][2]int) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	for i := 0; i < len(spans); {
		start, end := spans[i][0], spans[i][1]
		j := i + 1
		for j < len(spans) && spans[j][0] < end {
			if spans[j][1] > end {
				end = spans[j][1]
			}
			j++
		}

		b.WriteString(text[cursor:start])
		b.WriteString(Mask)
		cursor = end
		i = j
	}
	b.WriteString(text[cursor:])
	return b.String()
}

// isWordBoundary reports whether text[start:end] is not glued to a word
// character on either side.
func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordChar(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordChar(r) {
			return false
		}
	}
	return true
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Normalize returns the canonical stored form of a banned word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
