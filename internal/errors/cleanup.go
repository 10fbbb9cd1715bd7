// Package errors provides small error-handling utilities shared across
// the module.
package errors

import (
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes an io.Closer and logs a failure instead of
// suppressing it. Use it in defer statements around object files and
// other resources whose close errors are worth surfacing but never
// worth failing the caller over.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}
