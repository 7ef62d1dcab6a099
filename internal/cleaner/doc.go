// Package cleaner implements the two transcript cleanup paths: synchronous
// annotation stripping applied per fragment, and the optional whole-session
// cleanup through the remote messages endpoint with a fail-safe fallback
// to the original text.
package cleaner
