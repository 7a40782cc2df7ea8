package config

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alertcore/alertcore/pkg/filewatch"
)

// Watch reloads path after every change and hands the new Config to
// onChange. It runs until ctx is cancelled. A file that fails to load or
// validate is logged and skipped, leaving the previous config in effect.
func Watch(ctx context.Context, path string, logger zerolog.Logger, onChange func(*Config)) error {
	log := logger.With().Str("component", "config").Logger()
	return filewatch.Watch(ctx, path, 0, log, func() {
		cfg, err := Load(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("reload failed, keeping previous config")
			return
		}
		log.Info().
			Str("path", path).
			Int("descriptors", len(cfg.Server.Descriptors)).
			Msg("reloaded")
		onChange(cfg)
	})
}
