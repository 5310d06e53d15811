package htmx

import (
	"net/http"
	"strings"
)

// EventThemeChanged is triggered on body whenever the stored theme may have changed.
const EventThemeChanged = "themeChanged"

func IsRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// Trigger asks htmx to fire event on the client once the response is swapped.
func Trigger(w http.ResponseWriter, event string) {
	w.Header().Add("HX-Trigger", event)
}
