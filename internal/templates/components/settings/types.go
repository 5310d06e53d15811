package settings

import "github.com/codr1/dashprefs/internal/models"

type Notice struct {
	Level   string
	Message string
}

type FormData struct {
	Values     models.ThemeSettings
	HasChanges bool
	Saving     bool
	SignedIn   bool
	Notice     *Notice
}

func (d FormData) CanSave() bool {
	return d.HasChanges && !d.Saving && d.SignedIn
}

type ToggleData struct {
	Theme   models.Theme
	Loading bool
}

// Label is the accessible name of the toggle button.
func (d ToggleData) Label() string {
	return "Switch to " + string(d.Theme.Toggled()) + " theme"
}

var fontSizeLabels = map[models.FontSize]string{
	models.FontSizeSmall:      "Small",
	models.FontSizeMedium:     "Medium",
	models.FontSizeLarge:      "Large",
	models.FontSizeExtraLarge: "Extra large",
}

func fontSizeLabel(size models.FontSize) string {
	if label, ok := fontSizeLabels[size]; ok {
		return label
	}
	return string(size)
}
