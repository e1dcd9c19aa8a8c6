package commands

import (
	"strings"

	"galerts/lib/scrapers/galerts/manage"
	"galerts/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

func formatSources(sources []manage.Source) string {
	if sources == nil {
		return "automatic"
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func formatDestination(alert manage.Alert) string {
	if alert.Delivery == manage.DeliverFeed {
		return alert.FeedUrl
	}
	return alert.Email
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the alerts of the configured account.",
	Run: func(cmd *cobra.Command, args []string) {
		manager := createManager(cmd.Context())

		alerts, err := manager.List(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list alerts", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{
			"Id", "Query", "Sources", "Volume", "Frequency", "Deliver to",
		})
		for _, alert := range alerts {
			t.AppendRow(table.Row{
				alert.Id,
				alert.Query,
				formatSources(alert.Sources),
				alert.Volume,
				alert.Frequency,
				formatDestination(alert),
			})
		}
		t.Render()
	},
}
