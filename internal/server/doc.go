// Package server runs the HTTP transport of the service.
//
// It owns the listener lifecycle: startup, waiting for the run context to be
// cancelled (normally by SIGTERM or SIGINT), and graceful shutdown bounded
// by the configured shutdown timeout.
package server
