package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driveline/internal/daemon"
	"driveline/internal/logging"
	"driveline/internal/notifications"
	"driveline/internal/orchestrator"
	"driveline/internal/queue"
	"driveline/internal/services/extractor"
	"driveline/internal/services/scraper"
)

// newDaemonCommand runs the daemon in the foreground, same wiring as the
// drivelined binary but sharing the CLI's config flags.
func newDaemonCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the driveline daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}

			extract, err := extractor.New(cfg.Extractors)
			if err != nil {
				store.Close()
				return err
			}

			runner := orchestrator.NewRunner(cfg, store, extract,
				scraper.New(cfg.Scrapers), notifications.NewService(cfg), logger)
			d, err := daemon.New(cfg, store, runner, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			// The root command's context already carries signal cancellation.
			ctx := cmd.Context()

			if err := d.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driveline daemon running (api %s)\n", d.APIAddr())

			<-ctx.Done()
			return nil
		},
	}
}
