package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codr1/dashprefs/internal/settings"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip between the dark and light theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp()
		if err != nil {
			return err
		}
		defer application.Close()

		theme, err := settings.NewToggle(application.Service).Toggle(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]string{"theme": string(theme)})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Theme is now %s\n", theme)
		return nil
	},
}
