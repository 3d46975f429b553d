package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"radarbot-backend/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	httpDump   string
)

// loaded by the root command before any subcommand runs
var (
	cfg     Config
	otelSdk telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "radarbot",
	Short: "radarbot keeps track of the bot's users and tells them where Donostia's mobile radars are.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = loadConfig(configPath, !cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}

		otelSdk, err = telemetry.Setup(cmd.Context(), "radarbot", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context(), 5*time.Second)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := otelSdk.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The configuration file, config.local.json5 next to it overrides its values.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs.")
	rootCmd.PersistentFlags().StringVar(&httpDump, "http-dump", "", "Write every HTTP exchange to this directory (requires -v).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
