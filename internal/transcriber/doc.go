// Package transcriber runs the recognition subprocess on completed audio
// chunks and streams the cleaned transcript fragments into the insertion
// sink, preserving chunk-creation order. Payload extraction from the
// recognizer's output is behind an injectable OutputParser.
package transcriber
