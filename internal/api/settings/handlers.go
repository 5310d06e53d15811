// internal/api/settings/handlers.go
package settings

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/dashprefs/internal/api/apiutil"
	"github.com/codr1/dashprefs/internal/api/htmx"
	"github.com/codr1/dashprefs/internal/models"
	prefs "github.com/codr1/dashprefs/internal/settings"
	settingstempl "github.com/codr1/dashprefs/internal/templates/components/settings"
	"github.com/codr1/dashprefs/internal/templates/layouts"
)

type editRequest struct {
	Theme          *string `json:"theme"`
	FontSize       *string `json:"fontSize"`
	ColorBlindMode *bool   `json:"colorBlindMode"`
	ReducedMotion  *bool   `json:"reducedMotion"`
}

// Handler serves the settings form. The server keeps one form per device, so
// every request works on the same Form.
type Handler struct {
	svc    *prefs.Service
	form   *prefs.Form
	toggle *prefs.Toggle
	guard  apiutil.Guard
}

func NewHandler(svc *prefs.Service, form *prefs.Form, toggle *prefs.Toggle) *Handler {
	return &Handler{svc: svc, form: form, toggle: toggle}
}

// WithWriteGuard wraps the routes that write settings.
func (h *Handler) WithWriteGuard(guard apiutil.Guard) *Handler {
	h.guard = guard
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /settings", h.HandleSettingsPage)
	mux.HandleFunc("GET /api/v1/settings", h.HandleGetSettings)
	mux.HandleFunc("PATCH /api/v1/settings", h.HandleUpdateSettings)
	mux.HandleFunc("POST /api/v1/settings/save", h.guard.Wrap(h.HandleSaveSettings))
	mux.HandleFunc("POST /api/v1/settings/reload", h.HandleReloadSettings)
	mux.HandleFunc("DELETE /api/v1/settings/notice", h.HandleDismissNotice)
}

// /settings
func (h *Handler) HandleSettingsPage(w http.ResponseWriter, r *http.Request) {
	state := h.form.State()
	if !state.Loaded || r.URL.Query().Get("reload") == "1" {
		// Load failures are already on the form as a notice.
		state, _ = h.form.Load(r.Context())
	}

	current := h.svc.CurrentSettings(r.Context())
	toggle := settingstempl.ThemeToggleSlot(settingstempl.ToggleData{Theme: h.toggle.Theme(), Loading: h.toggle.Loading()})
	page := layouts.Base(settingstempl.SettingsPage(formData(state)), current, toggle)
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render settings page", "Failed to render page")
}

// GET /api/v1/settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	state := h.form.State()
	if !state.Loaded {
		state, _ = h.form.Load(r.Context())
	}
	h.respond(w, r, http.StatusOK, state)
}

// PATCH /api/v1/settings
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	edit, err := decodeEditRequest(r)
	if err != nil {
		logger.Debug().Err(err).Msg("Invalid settings edit")
		h.respondError(w, r, http.StatusBadRequest, err)
		return
	}

	state, err := h.form.Update(edit)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	h.respond(w, r, http.StatusOK, state)
}

// POST /api/v1/settings/save
func (h *Handler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	state, err := h.form.Save(r.Context())
	if err == nil {
		htmx.Trigger(w, htmx.EventThemeChanged)
		h.respond(w, r, http.StatusOK, state)
		return
	}

	// Save sets an error notice for failures it attempted; guard errors get
	// their own.
	if state.Notice == nil || state.Notice.Level != prefs.NoticeError {
		state.Notice = &prefs.Notice{Level: prefs.NoticeWarning, Message: saveErrorMessage(err)}
	}
	if htmx.IsRequest(r) {
		// htmx only swaps 2xx answers; the notice carries the failure.
		h.renderForm(w, r, state)
		return
	}
	apiutil.WriteError(w, saveErrorStatus(err), state.Notice.Message)
}

// DELETE /api/v1/settings/notice
func (h *Handler) HandleDismissNotice(w http.ResponseWriter, r *http.Request) {
	h.form.DismissNotice()
	h.respond(w, r, http.StatusOK, h.form.State())
}

// POST /api/v1/settings/reload
func (h *Handler) HandleReloadSettings(w http.ResponseWriter, r *http.Request) {
	state, err := h.form.Load(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Settings reload finished with errors")
	}
	h.respond(w, r, http.StatusOK, state)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, state prefs.FormState) {
	if htmx.IsRequest(r) {
		h.renderForm(w, r, state)
		return
	}
	if err := apiutil.WriteJSON(w, status, state); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write settings response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if htmx.IsRequest(r) {
		state := h.form.State()
		state.Notice = &prefs.Notice{Level: prefs.NoticeError, Message: err.Error()}
		h.renderForm(w, r, state)
		return
	}

	body := apiutil.ErrorResponse{Error: err.Error()}
	var validationErr models.ValidationError
	var fieldErr apiutil.FieldError
	switch {
	case errors.As(err, &validationErr):
		body.Field = validationErr.Field
	case errors.As(err, &fieldErr):
		body.Field = fieldErr.Field
	}
	_ = apiutil.WriteJSON(w, status, body)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, state prefs.FormState) {
	component := settingstempl.SettingsForm(formData(state))
	apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render settings form", "Failed to render form")
}

func decodeEditRequest(r *http.Request) (prefs.Edit, error) {
	if apiutil.IsJSONRequest(r) {
		var req editRequest
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return prefs.Edit{}, err
		}
		return prefs.Edit(req), nil
	}

	if err := r.ParseForm(); err != nil {
		return prefs.Edit{}, err
	}
	colorBlind, err := apiutil.ParseOptionalBoolField(apiutil.FirstNonEmpty(r.FormValue("colorBlindMode"), r.FormValue("color_blind_mode")), "colorBlindMode")
	if err != nil {
		return prefs.Edit{}, err
	}
	reducedMotion, err := apiutil.ParseOptionalBoolField(apiutil.FirstNonEmpty(r.FormValue("reducedMotion"), r.FormValue("reduced_motion")), "reducedMotion")
	if err != nil {
		return prefs.Edit{}, err
	}
	return prefs.Edit{
		Theme:          apiutil.ParseOptionalStringField(r.FormValue("theme")),
		FontSize:       apiutil.ParseOptionalStringField(apiutil.FirstNonEmpty(r.FormValue("fontSize"), r.FormValue("font_size"))),
		ColorBlindMode: colorBlind,
		ReducedMotion:  reducedMotion,
	}, nil
}

func saveErrorStatus(err error) int {
	var persistErr *models.PersistenceError
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, prefs.ErrSaveInProgress), errors.Is(err, prefs.ErrNoChanges):
		return http.StatusConflict
	case errors.As(err, &persistErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func saveErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return "Sign in to save your settings."
	case errors.Is(err, prefs.ErrSaveInProgress):
		return "A save is already in progress."
	case errors.Is(err, prefs.ErrNoChanges):
		return "There are no changes to save."
	default:
		return "Settings could not be saved."
	}
}

func formData(state prefs.FormState) settingstempl.FormData {
	data := settingstempl.FormData{
		Values:     state.Values,
		HasChanges: state.HasChanges,
		Saving:     state.Saving,
		SignedIn:   state.SignedIn,
	}
	if state.Notice != nil {
		data.Notice = &settingstempl.Notice{Level: string(state.Notice.Level), Message: state.Notice.Message}
	}
	return data
}
