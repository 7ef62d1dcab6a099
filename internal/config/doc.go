// Package config provides YAML configuration loading and validation.
// It defines configuration structures for the session, the capture and
// recognition subprocesses, remote cleanup, the monitoring HTTP server,
// and logging, with per-section validation and sane defaults.
package config
