package cleaner

import (
	"regexp"
	"strings"
)

// Recognizers annotate non-speech events as bracketed or parenthesized
// spans, e.g. "[BLANK_AUDIO]" or "(coughs)". Both patterns are
// non-nesting.
var (
	bracketAnnotation = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenAnnotation   = regexp.MustCompile(`\([^()]*\)`)
)

// StripAnnotations removes bracketed and parenthesized annotation spans
// from a transcript fragment, collapses runs of whitespace left behind,
// and trims the result.
func StripAnnotations(fragment string) string {
	s := bracketAnnotation.ReplaceAllString(fragment, "")
	s = parenAnnotation.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
