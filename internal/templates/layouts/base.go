package layouts

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/codr1/dashprefs/internal/models"
)

const themeSyncScript = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";var s=new WebSocket(p+location.host+"/api/v1/theme/ws");s.onmessage=function(e){var m=JSON.parse(e.data);if(m.type==="theme_changed"){document.documentElement.dataset.theme=m.theme;htmx.trigger(document.body,"themeChanged");}};})();</script>`

// Base wraps content in the dashboard shell. current decides the root
// attributes; toggle is rendered in the header.
func Base(content templ.Component, current models.ThemeSettings, toggle templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, fmt.Sprintf(
			`<!DOCTYPE html><html lang="en" data-theme="%s" class="%s">`,
			html.EscapeString(themeAttr(current.Theme)),
			html.EscapeString(rootClasses(current)),
		)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/><title>Dashboard settings</title>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<link rel="stylesheet" href="/static/css/main.css"/><script src="/static/js/htmx.min.js"></script>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, fmt.Sprintf(`<style>%s</style></head>`, getThemeCssVars(current))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<body class="min-h-screen bg-background text-foreground"><header class="flex items-center justify-between border-b border-border px-6 py-3"><a href="/settings" class="text-lg font-semibold">Dashboard</a>`); err != nil {
			return err
		}
		if toggle != nil {
			if err := toggle.Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</header><main class="mx-auto max-w-3xl p-6">`); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main>`+themeSyncScript+`</body></html>`)
		return err
	})
}
