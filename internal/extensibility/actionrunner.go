// Package extensibility holds reusable plumbing around command handlers and
// message sources.
package extensibility

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/tesmx"
)

// LoggingHandler wraps a command handler and logs every delivery with its
// duration. Failures log at warn level.
func LoggingHandler[C tesmx.Tagged](inner tesmx.CommandHandler[C], log zerolog.Logger) tesmx.CommandHandler[C] {
	return func(cmd C) error {
		start := time.Now()
		err := inner(cmd)
		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("command", cmd.Tag()).
			Dur("took", time.Since(start)).
			Msg("command handled")
		return err
	}
}

// RecoveringHandler turns a panic inside inner into an error so one faulty
// effect cannot abort the drain loop.
func RecoveringHandler[C tesmx.Tagged](inner tesmx.CommandHandler[C]) tesmx.CommandHandler[C] {
	return func(cmd C) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("command %q: recovered panic: %v", cmd.Tag(), r)
			}
		}()
		return inner(cmd)
	}
}
