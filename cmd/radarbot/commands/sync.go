package commands

import (
	"log/slog"
	"radarbot-backend/internal/interactions"
	"radarbot-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var syncConfirm bool

func init() {
	syncCmd.Flags().BoolVar(&syncConfirm, "confirm", false, "Acknowledge the fetched updates after saving them (overrides sync.confirm_updates).")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [--confirm]",
	Short: "Copies new bot interactions into the store.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		bot, err := newTelegramClient()
		if err != nil {
			serviceutil.Fatal("failed to create telegram client", err)
		}
		s, err := openStore(ctx)
		if err != nil {
			serviceutil.Fatal("failed to open store", err)
		}
		defer s.Close(ctx)

		opts := cfg.Sync
		if cmd.Flags().Changed("confirm") {
			opts.ConfirmUpdates = syncConfirm
		}

		result, err := interactions.NewUpdater(bot, s, tel, opts).Run(ctx)
		if err != nil {
			serviceutil.Fatal("failed to sync interactions", err)
		}
		slog.Info(
			"interactions synced",
			"updates", result.Updates,
			"chats", result.Chats,
			"new_chats", result.NewChats,
			"new_messages", result.NewMessages,
			"duplicates", result.Duplicates,
		)
	},
}
