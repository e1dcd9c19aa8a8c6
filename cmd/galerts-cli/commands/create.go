package commands

import (
	"galerts/lib/scrapers/galerts/manage"
	"galerts/lib/serviceutil"

	"github.com/spf13/cobra"
)

type createFlags struct {
	sources   *[]string
	deliver   *string
	frequency *string
	volume    *string
	language  *string
	region    *string
}

var createArgs createFlags

func init() {
	createArgs = createFlags{
		sources:   createCmd.Flags().StringSlice("source", nil, "Restrict the alert to these sources (blogs, news, web, video, books, discussions). Unset means automatic."),
		deliver:   createCmd.Flags().String("deliver", "feed", "Delivery channel, feed or email."),
		frequency: createCmd.Flags().String("frequency", "", `How often to deliver ("as-it-happens", "once a day", "once a week").`),
		volume:    createCmd.Flags().String("volume", "best", "Volume of results, all or best."),
		language:  createCmd.Flags().String("language", "en", "Language of the results."),
		region:    createCmd.Flags().String("region", "", "Restrict results to a region. Unset means any region."),
	}
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <query>",
	Short: "Creates a new alert for the given query.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager := createManager(cmd.Context())

		var sources []manage.Source
		for _, s := range *createArgs.sources {
			sources = append(sources, manage.Source(s))
		}

		err := manager.Create(cmd.Context(), manage.CreateAlertOptions{
			Query:     args[0],
			Sources:   sources,
			Delivery:  manage.Delivery(*createArgs.deliver),
			Frequency: manage.Frequency(*createArgs.frequency),
			Volume:    manage.Volume(*createArgs.volume),
			Language:  *createArgs.language,
			Region:    *createArgs.region,
		})
		if err != nil {
			serviceutil.Fatal("failed to create alert", err)
		}
	},
}
