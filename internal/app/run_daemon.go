package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dev-tams/offhours/internal/cloud"
	"github.com/dev-tams/offhours/internal/config"
)

// RunDaemon triggers a full sweep on the configured cron spec until the
// context is canceled. Each trigger is the same run-to-completion batch
// as the run command; a failed sweep is logged and the next trigger is
// the retry.
func RunDaemon(ctx context.Context, client cloud.Client, cfg *config.Config, simulate bool, log zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Daemon.Cron, func() {
		if err := RunOnce(ctx, client, cfg, simulate, log); err != nil {
			log.Error().Err(err).Msg("scheduled sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("daemon: invalid cron spec %q: %w", cfg.Daemon.Cron, err)
	}

	log.Info().Str("cron", cfg.Daemon.Cron).Bool("simulate", simulate).Msg("daemon started")
	c.Start()

	<-ctx.Done()
	log.Info().Msg("daemon: shutdown requested")

	// Let an in-flight sweep finish before returning.
	stopped := c.Stop()
	<-stopped.Done()
	return nil
}
