package commands

import (
	"galerts/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <alert id>",
	Short: "Deletes an existing alert.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager := createManager(cmd.Context())
		alert := findAlert(manager, cmd, args[0])

		err := manager.Delete(cmd.Context(), alert)
		if err != nil {
			serviceutil.Fatal("failed to delete alert", err)
		}
	},
}
