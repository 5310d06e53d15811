// internal/models/settings.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// CurrentSettingsID is the fixed identifier of the single local settings record.
const CurrentSettingsID = "current"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Toggled returns the opposite theme. Anything that is not light becomes light.
func (t Theme) Toggled() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

func ParseTheme(value string) (Theme, error) {
	theme := Theme(strings.TrimSpace(strings.ToLower(value)))
	if !theme.Valid() {
		return "", ValidationError{Field: "theme", Value: value}
	}
	return theme, nil
}

type FontSize string

const (
	FontSizeSmall      FontSize = "small"
	FontSizeMedium     FontSize = "medium"
	FontSizeLarge      FontSize = "large"
	FontSizeExtraLarge FontSize = "extra-large"
)

var fontSizes = []FontSize{FontSizeSmall, FontSizeMedium, FontSizeLarge, FontSizeExtraLarge}

func FontSizes() []FontSize {
	out := make([]FontSize, len(fontSizes))
	copy(out, fontSizes)
	return out
}

func (f FontSize) Valid() bool {
	for _, size := range fontSizes {
		if f == size {
			return true
		}
	}
	return false
}

func ParseFontSize(value string) (FontSize, error) {
	size := FontSize(strings.TrimSpace(strings.ToLower(value)))
	if !size.Valid() {
		return "", ValidationError{Field: "fontSize", Value: value}
	}
	return size, nil
}

// ThemeSettings is the locally persisted settings record.
type ThemeSettings struct {
	Theme          Theme     `json:"theme"`
	FontSize       FontSize  `json:"fontSize"`
	ColorBlindMode bool      `json:"colorBlindMode"`
	ReducedMotion  bool      `json:"reducedMotion"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{
		Theme:          ThemeDark,
		FontSize:       FontSizeMedium,
		ColorBlindMode: false,
		ReducedMotion:  false,
	}
}

// Validate rejects records that would not round-trip through the local store.
func (s ThemeSettings) Validate() error {
	if !s.Theme.Valid() {
		return ValidationError{Field: "theme", Value: string(s.Theme)}
	}
	if strings.TrimSpace(string(s.FontSize)) == "" {
		return ValidationError{Field: "fontSize", Value: string(s.FontSize)}
	}
	return nil
}

// SameValues compares the user-editable dimensions and ignores UpdatedAt.
func (s ThemeSettings) SameValues(other ThemeSettings) bool {
	return s.Theme == other.Theme &&
		s.FontSize == other.FontSize &&
		s.ColorBlindMode == other.ColorBlindMode &&
		s.ReducedMotion == other.ReducedMotion
}

func (s ThemeSettings) String() string {
	return fmt.Sprintf(
		"theme=%s fontSize=%s colorBlindMode=%t reducedMotion=%t",
		s.Theme,
		s.FontSize,
		s.ColorBlindMode,
		s.ReducedMotion,
	)
}
