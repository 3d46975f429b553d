package commands

import (
	"encoding/json"
	"os"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/notifier"
	"radarbot-backend/lib/serviceutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var checkJson bool

func init() {
	checkCmd.Flags().BoolVar(&checkJson, "json", false, "Print the status as JSON.")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--json]",
	Short: "Prints whether mobile radars are deployed today.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		source, _, release, err := newRadarSource(ctx, chrono.NewStandardTime())
		if err != nil {
			serviceutil.Fatal("failed to create radar scraper", err)
		}
		defer release()

		status, err := source.Check(ctx)
		if err != nil {
			serviceutil.Fatal("failed to check radar status", err)
		}

		if checkJson {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(status)
			if err != nil {
				serviceutil.Fatal("failed to encode status", err)
			}
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "State", "Locations"})
		t.AppendRow(table.Row{status.Date, status.State, strings.Join(status.Locations, "\n")})
		t.AppendFooter(table.Row{"", "", notifier.ComposeMessage(status)})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
