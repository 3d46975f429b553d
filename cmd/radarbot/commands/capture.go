package commands

import (
	"errors"
	"log/slog"
	"os"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var captureOut string

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "mapa_recortado.png", "Where to write the cropped map.")
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture [-o <file.png>]",
	Short: "Captures the radar map as a cropped PNG.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		_, scraper, release, err := newRadarSource(ctx, chrono.NewStandardTime())
		if err != nil {
			serviceutil.Fatal("failed to create radar scraper", err)
		}
		defer release()
		if scraper == nil {
			serviceutil.Fatal("failed to capture map", errors.New("radar.mode must be \"browser\" to capture the map"))
		}

		image, err := scraper.CaptureMap(ctx)
		if err != nil {
			serviceutil.Fatal("failed to capture map", err)
		}
		err = os.WriteFile(captureOut, image, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write map", err)
		}
		slog.Info("map captured", "path", captureOut, "bytes", len(image))
	},
}
