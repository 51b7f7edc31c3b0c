// Package logger provides structured logging for fergando-md.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, dynamic level, the Logger interface
//   - context.go: logger and request id propagation through context
//   - redact.go: masking of pairing secrets, passphrases and tokens
//
// Components take a *slog.Logger (Logger.Slog) so they stay independent
// of this package; the redacting handler applies to every record either way.
package logger
