package transcriber

import (
	"errors"
	"strings"
)

// ErrNoTranscript is returned when recognizer output contains no payload
// matching the expected convention.
var ErrNoTranscript = errors.New("no transcript payload in recognizer output")

// OutputParser extracts the transcript payload from raw recognizer
// output. The convention a recognizer follows is an artifact of that
// recognizer, so the parser is injectable rather than baked in.
type OutputParser interface {
	Parse(output string) (string, error)
}

// BlankLineParser implements the default convention: the payload is a
// single non-blank line isolated by a blank line above and below it.
type BlankLineParser struct{}

// Parse returns the first line isolated by blank lines, trimmed, or
// ErrNoTranscript when no such line exists.
func (BlankLineParser) Parse(output string) (string, error) {
	lines := strings.Split(output, "\n")
	for i := 1; i < len(lines)-1; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if strings.TrimSpace(lines[i-1]) == "" && strings.TrimSpace(lines[i+1]) == "" {
			return strings.TrimSpace(lines[i]), nil
		}
	}
	return "", ErrNoTranscript
}
