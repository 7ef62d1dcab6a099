package tag

import (
	"errors"
	"strings"

	"github.com/antonkf/dictation-service/internal/document"
)

// llmSuffix marks sessions whose transcript will be post-processed by the
// remote cleanup model, so a reader can tell the two apart in the raw text.
const llmSuffix = " + LLM"

// ErrRegionNotFound is returned when the document does not contain a
// complete start/end tag pair.
var ErrRegionNotFound = errors.New("tag region not found")

// Pair holds the sentinel strings delimiting one session's transcript.
// A Pair is derived once at session start and must be carried unchanged
// to session stop: closing with a different pair would make the region
// unfindable.
type Pair struct {
	Start string
	End   string
}

// NewPair derives the start/end sentinels from a base label. When cleaned
// is true the label carries the LLM suffix in both tags.
func NewPair(label string, cleaned bool) Pair {
	if cleaned {
		label += llmSuffix
	}
	return Pair{
		Start: label + " => ",
		End:   " <= " + label,
	}
}

// Strip removes every occurrence of both tag strings from text
func (p Pair) Strip(text string) string {
	text = strings.ReplaceAll(text, p.Start, "")
	return strings.ReplaceAll(text, p.End, "")
}

// Region locates and edits the span a Pair delimits within a document
type Region struct {
	doc  *document.Document
	pair Pair
}

// NewRegion binds a tag pair to a document
func NewRegion(doc *document.Document, pair Pair) Region {
	return Region{doc: doc, pair: pair}
}

// Find searches backward from the end of the document for the most recent
// start tag, then forward from there for the next end tag. It returns the
// span [startOfStartTag, endOfEndTag).
func (r Region) Find() (start, end int, err error) {
	start = r.doc.LastIndex(r.pair.Start, r.doc.Len())
	if start < 0 {
		return 0, 0, ErrRegionNotFound
	}
	e := r.doc.Index(r.pair.End, start+len(r.pair.Start))
	if e < 0 {
		return 0, 0, ErrRegionNotFound
	}
	return start, e + len(r.pair.End), nil
}

// Extract returns the raw text of the tagged span, tags included
func (r Region) Extract() (string, error) {
	start, end, err := r.Find()
	if err != nil {
		return "", err
	}
	return r.doc.Slice(start, end)
}

// Overwrite replaces the tagged span with text, removing both tags from
// the document
func (r Region) Overwrite(text string) error {
	start, end, err := r.Find()
	if err != nil {
		return err
	}
	return r.doc.Replace(start, end, text)
}
