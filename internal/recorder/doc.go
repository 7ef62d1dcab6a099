// Package recorder runs the chunk capture loop. It spawns one capture
// subprocess per fixed-duration chunk, emits completed chunk file paths
// in order, and guarantees that a capture killed by stop or cleanup never
// emits or chains to a next chunk.
package recorder
