package commands

import (
	"fmt"
	"os"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/lib/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var reportsLimit int

func init() {
	reportsCmd.Flags().IntVarP(&reportsLimit, "limit", "n", 10, "How many reports to print.")
	rootCmd.AddCommand(reportsCmd)
}

var reportsCmd = &cobra.Command{
	Use:   "reports [-n <limit>]",
	Short: "Prints the most recent notifier runs.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			serviceutil.Fatal("failed to open store", err)
		}
		defer s.Close(ctx)

		reports, err := s.ListReports(ctx, reportsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list reports", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "State", "Locations", "Sent", "Failed"})
		for _, r := range reports {
			t.AppendRow(table.Row{
				r.ScrappingTime.In(chrono.Madrid()).Format("2006-01-02 15:04"),
				r.Status,
				strings.Join(r.Locations, "\n"),
				len(r.IDsSent),
				formatIDs(r.IDsError),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
