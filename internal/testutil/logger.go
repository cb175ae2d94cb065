package testutil

import (
	"log/slog"

	"github.com/wavechat/wavechat/internal/log"
)

// DiscardLogger returns a logger that drops everything, for tests that
// do not assert on log output.
func DiscardLogger() log.Logger {
	return slog.New(slog.DiscardHandler)
}
