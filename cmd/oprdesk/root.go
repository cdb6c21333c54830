package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"oprdesk/internal/config"
	"oprdesk/internal/export"
	"oprdesk/internal/logging"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger

	// printer replaces headless Chrome; tests only.
	printer export.Printer
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&rootOptions{}) }

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oprdesk",
		Short: "One-page report (OPR) desk",
		Long: `oprdesk stores one-page program reports, renders them as A4 PDF documents
and uploads them to a configured destination.

Configuration comes from --config (or OPRDESK_CONFIG) with OPRDESK_* environment
overrides on top.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				path = os.Getenv(config.EnvPrefix + "CONFIG")
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := logging.New(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.AddCommand(
		newServeCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}
