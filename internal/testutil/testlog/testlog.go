// Package testlog routes test logs through the shared zerolog setup.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/moffa90/go-xmodem/internal/logging"
)

// Start configures the test logging profile and marks the start of t.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}
