package layouts

import (
	"fmt"
	"strings"

	"github.com/codr1/dashprefs/internal/models"
)

var fontScales = map[models.FontSize]string{
	models.FontSizeSmall:      "0.875",
	models.FontSizeMedium:     "1",
	models.FontSizeLarge:      "1.125",
	models.FontSizeExtraLarge: "1.25",
}

func getThemeCssVars(settings models.ThemeSettings) string {
	scale, ok := fontScales[settings.FontSize]
	if !ok {
		scale = fontScales[models.FontSizeMedium]
	}
	motion := "1"
	if settings.ReducedMotion {
		motion = "0"
	}
	return fmt.Sprintf(":root{--font-scale:%s;--motion-scale:%s;}", scale, motion)
}

// rootClasses are the classes set on <html>. Unknown font sizes fall back to
// medium so stylesheet selectors stay closed over the known sizes.
func rootClasses(settings models.ThemeSettings) string {
	size := settings.FontSize
	if !size.Valid() {
		size = models.FontSizeMedium
	}
	classes := []string{"font-size-" + string(size)}
	if settings.ReducedMotion {
		classes = append(classes, "reduce-motion")
	}
	if settings.ColorBlindMode {
		classes = append(classes, "color-blind")
	}
	return strings.Join(classes, " ")
}

func themeAttr(theme models.Theme) string {
	if theme.Valid() {
		return string(theme)
	}
	return string(models.ThemeDark)
}
