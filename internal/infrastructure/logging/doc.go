// Package logging provides structured logging for hubsync.
//
// It wraps log/slog so every component logs the same way:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log the controller API token or session keys.
package logging
