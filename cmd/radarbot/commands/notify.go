package commands

import (
	"log/slog"
	"os"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/notifier"
	"radarbot-backend/internal/store"
	"radarbot-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	notifyDryRun  bool
	notifyCapture string
	notifyMapOut  string
)

func init() {
	notifyCmd.Flags().BoolVar(&notifyDryRun, "dry-run", false, "Compose the message without sending or recording anything.")
	notifyCmd.Flags().StringVar(&notifyCapture, "capture", "", "When to attach the map: present, absent, always or never (overrides notify.capture).")
	notifyCmd.Flags().StringVar(&notifyMapOut, "map-out", "", "Also write the captured map to this file.")
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify [--dry-run] [--capture <policy>] [--map-out <file.png>]",
	Short: "Checks the radar page and notifies every known user.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		clock := chrono.NewStandardTime()

		opts := cfg.Notify
		if cmd.Flags().Changed("dry-run") {
			opts.DryRun = notifyDryRun
		}
		if notifyCapture != "" {
			opts.Capture = notifier.CapturePolicy(notifyCapture)
		}

		bot, err := newTelegramClient()
		if err != nil {
			serviceutil.Fatal("failed to create telegram client", err)
		}

		var s store.Store
		if cfg.Store.URI != "" {
			s, err = openStore(ctx)
			if err != nil {
				serviceutil.Fatal("failed to open store", err)
			}
			defer s.Close(ctx)
		}

		source, _, release, err := newRadarSource(ctx, clock)
		if err != nil {
			serviceutil.Fatal("failed to create radar scraper", err)
		}
		defer release()

		n, err := newNotifier(source, bot, s, clock, opts)
		if err != nil {
			serviceutil.Fatal("failed to create notifier", err)
		}

		result, err := n.Run(ctx)
		if notifyMapOut != "" && result.Map != nil {
			writeErr := os.WriteFile(notifyMapOut, result.Map, 0644)
			if writeErr != nil {
				slog.Warn("failed to write map", "path", notifyMapOut, "err", writeErr)
			}
		}
		if err != nil {
			serviceutil.Fatal("notify run failed", err)
		}

		slog.Info(
			"notification finished",
			"state", result.Status.State,
			"locations", result.Status.Locations,
			"recipients", len(result.Recipients),
			"sent", len(result.IDsSent),
			"failed", len(result.IDsError),
			"photos", result.PhotosSent,
			"whatsapp", result.WhatsAppSent,
			"emailed", result.Emailed,
			"report", result.ReportID,
			"dry_run", opts.DryRun,
		)
	},
}
