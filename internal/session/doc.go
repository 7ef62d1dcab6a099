// Package session implements the top-level dictation state machine. A
// Controller owns at most one active Session at a time and coordinates
// start, stop, toggle, and emergency cleanup across the recorder,
// transcriber, sink, tag region, and remote cleanup client.
package session
