// Package server provides the optional HTTP monitoring API: health,
// session status, sanitized configuration, and Prometheus metrics.
package server
