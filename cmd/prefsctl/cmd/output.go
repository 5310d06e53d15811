package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/codr1/dashprefs/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSettings(w io.Writer, s models.ThemeSettings) error {
	if jsonOut {
		return printJSON(w, s)
	}
	fmt.Fprintf(w, "Theme:            %s\n", s.Theme)
	fmt.Fprintf(w, "Font size:        %s\n", s.FontSize)
	fmt.Fprintf(w, "Color blind mode: %t\n", s.ColorBlindMode)
	fmt.Fprintf(w, "Reduced motion:   %t\n", s.ReducedMotion)
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:          %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
