package commands

import (
	"fmt"

	"galerts/lib/scrapers/galerts/manage"
	"galerts/lib/serviceutil"

	"github.com/spf13/cobra"
)

func findAlert(manager *manage.Manager, cmd *cobra.Command, id string) manage.Alert {
	alerts, err := manager.List(cmd.Context())
	if err != nil {
		serviceutil.Fatal("failed to list alerts", err)
	}
	for _, alert := range alerts {
		if alert.Id == id {
			return alert
		}
	}
	serviceutil.Fatal("no such alert", fmt.Errorf("no alert with id %q, try `galerts-cli list`", id))
	panic("unreachable")
}

type updateFlags struct {
	query     *string
	deliver   *string
	frequency *string
	volume    *string
}

var updateArgs updateFlags

func init() {
	updateArgs = updateFlags{
		query:     updateCmd.Flags().String("query", "", "Change the search terms."),
		deliver:   updateCmd.Flags().String("deliver", "", "Change the delivery channel, feed or email."),
		frequency: updateCmd.Flags().String("frequency", "", "Change the delivery frequency."),
		volume:    updateCmd.Flags().String("volume", "", "Change the volume of results, all or best."),
	}
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update <alert id>",
	Short: "Modifies an existing alert.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager := createManager(cmd.Context())
		alert := findAlert(manager, cmd, args[0])

		if *updateArgs.query != "" {
			alert.Query = *updateArgs.query
		}
		if *updateArgs.deliver != "" {
			alert.Delivery = manage.Delivery(*updateArgs.deliver)
		}
		if *updateArgs.frequency != "" {
			alert.Frequency = manage.Frequency(*updateArgs.frequency)
		}
		if *updateArgs.volume != "" {
			alert.Volume = manage.Volume(*updateArgs.volume)
		}

		err := manager.Update(cmd.Context(), alert)
		if err != nil {
			serviceutil.Fatal("failed to update alert", err)
		}
	},
}
