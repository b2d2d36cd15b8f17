package logger

import (
	"log/slog"
	"os"

	"github.com/corepay-ledger/internal/config"
)

// NewLogger builds the JSON logger every service shares. Each line carries
// the service name so aggregated logs from the API and the processor can be
// told apart.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", cfg.Application.Name)
	logger.Info("logger initialized", "level", level)

	return logger
}
