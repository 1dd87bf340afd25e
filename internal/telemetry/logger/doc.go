// Package logger is docmirror's structured logging on top of log/slog.
//
// Handlers built by New redact credentials (the remote api_token, bearer
// headers) before anything is written. L returns the logger carried by a
// context, tagged with the sync run id. NewHCLogger adapts a Logger for
// go-retryablehttp.
package logger
