package settings

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/codr1/dashprefs/internal/models"
)

func SettingsPage(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="space-y-6"><div><h2 class="text-2xl font-semibold text-foreground">Settings</h2><p class="mt-1 text-sm text-muted-foreground">Appearance and accessibility for this dashboard.</p></div>`); err != nil {
			return err
		}
		if err := SettingsForm(data).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func SettingsForm(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, buildSettingsFormHTML(data))
		return err
	})
}

func buildSettingsFormHTML(data FormData) string {
	var builder strings.Builder
	builder.WriteString(`<form id="settings-form" class="space-y-6 rounded-lg border border-border bg-background p-4 shadow-sm" hx-patch="/api/v1/settings" hx-trigger="change" hx-target="#settings-form" hx-swap="outerHTML">`)
	builder.WriteString(buildNoticeHTML(data.Notice))

	builder.WriteString(`<fieldset><legend class="text-sm font-medium text-foreground">Theme</legend><div class="mt-2 flex gap-4">`)
	for _, theme := range []models.Theme{models.ThemeLight, models.ThemeDark} {
		checked := ""
		if data.Values.Theme == theme {
			checked = ` checked`
		}
		builder.WriteString(fmt.Sprintf(
			`<label class="flex items-center gap-2 text-sm"><input type="radio" name="theme" value="%s"%s/>%s</label>`,
			theme, checked, strings.ToUpper(string(theme[:1]))+string(theme[1:]),
		))
	}
	builder.WriteString(`</div></fieldset>`)

	builder.WriteString(`<div><label for="font-size" class="block text-sm font-medium text-foreground">Font size</label><select id="font-size" name="fontSize" class="mt-1 w-full rounded-md border border-border px-3 py-2 text-sm">`)
	known := false
	for _, size := range models.FontSizes() {
		selected := ""
		if data.Values.FontSize == size {
			selected = ` selected`
			known = true
		}
		builder.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`, size, selected, fontSizeLabel(size)))
	}
	if !known && data.Values.FontSize != "" {
		value := html.EscapeString(string(data.Values.FontSize))
		builder.WriteString(fmt.Sprintf(`<option value="%s" selected disabled>%s (unrecognized)</option>`, value, value))
	}
	builder.WriteString(`</select></div>`)

	builder.WriteString(buildCheckboxHTML("colorBlindMode", "Color blind mode", "Use patterns and higher-contrast colors alongside color coding.", data.Values.ColorBlindMode))
	builder.WriteString(buildCheckboxHTML("reducedMotion", "Reduce motion", "Turn off animations and transitions.", data.Values.ReducedMotion))

	builder.WriteString(`<div class="flex flex-wrap items-center justify-between gap-4 border-t border-border pt-4">`)
	if data.SignedIn {
		builder.WriteString(`<button type="button" class="text-sm text-muted-foreground underline" hx-post="/api/v1/settings/reload" hx-target="#settings-form" hx-swap="outerHTML">Reload from profile</button>`)
	} else {
		builder.WriteString(`<p class="text-sm text-muted-foreground">Sign in to save your settings to your profile.</p>`)
	}

	label := "Save changes"
	if data.Saving {
		label = "Saving..."
	}
	disabled := ""
	if !data.CanSave() {
		disabled = ` disabled`
	}
	builder.WriteString(fmt.Sprintf(
		`<button type="button" class="rounded-md bg-primary px-4 py-2 text-sm font-medium text-primary-foreground disabled:opacity-50" hx-post="/api/v1/settings/save" hx-target="#settings-form" hx-swap="outerHTML"%s>%s</button>`,
		disabled, label,
	))
	builder.WriteString(`</div></form>`)
	return builder.String()
}

// The hidden input follows the checkbox so an unchecked box still submits
// false and a checked one's value is read first.
func buildCheckboxHTML(name, label, help string, checked bool) string {
	checkedAttr := ""
	if checked {
		checkedAttr = ` checked`
	}
	return fmt.Sprintf(
		`<label class="flex items-start gap-3"><input type="checkbox" name="%s" value="true"%s class="mt-1"/><input type="hidden" name="%s" value="false"/><span><span class="block text-sm font-medium text-foreground">%s</span><span class="block text-xs text-muted-foreground">%s</span></span></label>`,
		name, checkedAttr, name, label, help,
	)
}

func buildNoticeHTML(notice *Notice) string {
	if notice == nil || notice.Message == "" {
		return `<div id="settings-notice"></div>`
	}
	tone := "border-border text-foreground"
	switch notice.Level {
	case "error":
		tone = "border-red-300 bg-red-50 text-red-800"
	case "warning":
		tone = "border-amber-300 bg-amber-50 text-amber-800"
	case "success":
		tone = "border-green-300 bg-green-50 text-green-800"
	}
	return fmt.Sprintf(
		`<div id="settings-notice" role="status" class="flex items-start justify-between gap-3 rounded-md border px-3 py-2 text-sm %s"><span>%s</span><button type="button" class="text-xs underline" aria-label="Dismiss" hx-delete="/api/v1/settings/notice" hx-target="#settings-form" hx-swap="outerHTML">Dismiss</button></div>`,
		tone, html.EscapeString(notice.Message),
	)
}

func ThemeToggle(data ToggleData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		disabled := ""
		if data.Loading {
			disabled = ` disabled aria-busy="true"`
		}
		icon := "☾"
		if data.Theme == models.ThemeLight {
			icon = "☀"
		}
		_, err := io.WriteString(w, fmt.Sprintf(
			`<button id="theme-toggle" type="button" class="rounded-md border border-border px-3 py-1 text-sm" aria-label="%s" data-theme="%s" hx-post="/api/v1/theme/toggle" hx-swap="outerHTML"%s>%s</button>`,
			html.EscapeString(data.Label()), html.EscapeString(string(data.Theme)), disabled, icon,
		))
		return err
	})
}

// ThemeToggleSlot re-fetches the toggle whenever another tab or device
// changes the theme.
func ThemeToggleSlot(data ToggleData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<span id="theme-toggle-slot" hx-get="/api/v1/theme" hx-trigger="themeChanged from:body" hx-swap="innerHTML">`); err != nil {
			return err
		}
		if err := ThemeToggle(data).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</span>`)
		return err
	})
}
