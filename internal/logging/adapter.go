package logging

import (
	"github.com/rs/zerolog"
)

// Adapter routes engine log calls (xmodem.Logger) to a zerolog logger.
// Key-value pairs become structured fields.
type Adapter struct {
	logger zerolog.Logger
}

func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error().Fields(keysAndValues).Msg(msg)
}
