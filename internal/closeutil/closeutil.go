// Package closeutil provides small helpers for closing resources without
// silently swallowing errors.
package closeutil

import (
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes closer and logs any error at warn level. Use in defer
// statements where a close failure shouldn't abort the caller but also
// shouldn't vanish.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}
