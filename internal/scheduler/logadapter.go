package scheduler

import "github.com/rs/zerolog"

// stdLogAdapter bridges zerolog.Logger to cron.PrintfLogger's required
// Printf(string, ...interface{}) shape.
type stdLogAdapter struct {
	logger zerolog.Logger
}

func (a stdLogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Error().Msgf(format, args...)
}
