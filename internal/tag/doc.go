// Package tag derives the sentinel strings that delimit one dictation
// session's output and locates, extracts, and overwrites the delimited
// span in the target document.
package tag
