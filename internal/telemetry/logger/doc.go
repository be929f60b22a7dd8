// Package logger provides structured logging for AskGate.
//
// It wraps log/slog to provide structured JSON logging with automatic
// redaction of access token values, so a misplaced log line can never
// leak a live credential.
package logger
