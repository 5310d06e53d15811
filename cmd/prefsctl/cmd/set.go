package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codr1/dashprefs/internal/settings"
)

var (
	setTheme         string
	setFontSize      string
	setColorBlind    bool
	setReducedMotion bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings and save them locally and to the profile",
	Long: `set loads the reconciled settings, applies the given flags, and saves.
Saving requires a signed-in user (PROFILE_AUTH_TOKEN).`,
	Example: `  prefsctl set --theme light
  prefsctl set --font-size large --reduced-motion`,
	RunE: func(cmd *cobra.Command, args []string) error {
		edit := editFromFlags(cmd)
		if edit == (settings.Edit{}) {
			return errors.New("nothing to change: pass at least one of --theme, --font-size, --color-blind, --reduced-motion")
		}

		application, err := openApp()
		if err != nil {
			return err
		}
		defer application.Close()

		form := settings.NewForm(application.Service)
		if _, err := form.Load(cmd.Context()); err != nil {
			cmd.PrintErrln("Warning:", err)
		}
		if _, err := form.Update(edit); err != nil {
			return err
		}

		state, err := form.Save(cmd.Context())
		if errors.Is(err, settings.ErrNoChanges) {
			fmt.Fprintln(cmd.OutOrStdout(), "Settings already match, nothing saved.")
			return nil
		}
		if err != nil {
			if state.Notice != nil {
				return fmt.Errorf("%s: %w", state.Notice.Message, err)
			}
			return err
		}
		return printSettings(cmd.OutOrStdout(), state.Current)
	},
}

func editFromFlags(cmd *cobra.Command) settings.Edit {
	var edit settings.Edit
	flags := cmd.Flags()
	if flags.Changed("theme") {
		edit.Theme = &setTheme
	}
	if flags.Changed("font-size") {
		edit.FontSize = &setFontSize
	}
	if flags.Changed("color-blind") {
		edit.ColorBlindMode = &setColorBlind
	}
	if flags.Changed("reduced-motion") {
		edit.ReducedMotion = &setReducedMotion
	}
	return edit
}

func init() {
	setCmd.Flags().StringVar(&setTheme, "theme", "", "Theme: dark or light")
	setCmd.Flags().StringVar(&setFontSize, "font-size", "", "Font size: small, medium, large or extra-large")
	setCmd.Flags().BoolVar(&setColorBlind, "color-blind", false, "Enable color blind mode")
	setCmd.Flags().BoolVar(&setReducedMotion, "reduced-motion", false, "Enable reduced motion")
}
