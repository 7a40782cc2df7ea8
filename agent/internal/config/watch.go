package config

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alertcore/alertcore/pkg/filewatch"
)

// Watch calls onChange with the reloaded Config whenever path changes, until
// ctx is cancelled. Invalid files are logged and ignored.
func Watch(ctx context.Context, path string, logger zerolog.Logger, onChange func(*Config)) error {
	log := logger.With().Str("component", "config").Logger()
	return filewatch.Watch(ctx, path, 0, log, func() {
		cfg, err := Load(path)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring invalid config")
			return
		}
		log.Info().Str("log_level", cfg.Agent.Log.Level).Msg("config reloaded")
		onChange(cfg)
	})
}
