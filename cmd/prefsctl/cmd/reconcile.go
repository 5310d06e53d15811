package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge the profile's stored settings with this device",
	Long: `reconcile reads the signed-in user's profile, reports what the settings
form would show, and rewrites any profile field that is missing or invalid.
The local store is not changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp()
		if err != nil {
			return err
		}
		defer application.Close()

		rec, err := application.Service.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			return printJSON(out, rec)
		}
		fmt.Fprintf(out, "Outcome:          %s\n", rec.Outcome)
		if rec.SignedIn {
			fmt.Fprintf(out, "User:             %s\n", rec.UserID)
		}
		for _, warning := range rec.Warnings {
			fmt.Fprintf(out, "Warning:          %s\n", warning)
		}
		fmt.Fprintln(out, "\nLocal:")
		if err := printSettings(out, rec.Base); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nReconciled:")
		return printSettings(out, rec.Working)
	},
}
