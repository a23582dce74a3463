// Package logging builds the slog loggers used across intake and provides
// small attribute helpers so call sites stay terse.
package logging
