// Package document provides the mutable text buffer the dictation
// pipeline writes into. It implements marker positions that survive
// concurrent edits, range replacement, and substring search, standing in
// for the host editor buffer the service targets.
package document
