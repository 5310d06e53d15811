package cmd

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings stored on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp()
		if err != nil {
			return err
		}
		defer application.Close()

		return printSettings(cmd.OutOrStdout(), application.Service.CurrentSettings(cmd.Context()))
	},
}
