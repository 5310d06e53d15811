package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/codr1/dashprefs/internal/models"
)

type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
	NoticeSuccess NoticeLevel = "success"
)

// Notice is a non-blocking message shown above the form.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// FormState is a snapshot of the form for rendering.
type FormState struct {
	Values     models.ThemeSettings `json:"values"`
	Current    models.ThemeSettings `json:"current"`
	HasChanges bool                 `json:"hasChanges"`
	Saving     bool                 `json:"saving"`
	Loaded     bool                 `json:"loaded"`
	SignedIn   bool                 `json:"signedIn"`
	Notice     *Notice              `json:"notice,omitempty"`
}

// CanSave mirrors the enabled state of the save button.
func (s FormState) CanSave() bool {
	return s.HasChanges && !s.Saving
}

// Edit carries the fields a caller wants to change. Nil fields are left alone.
type Edit struct {
	Theme          *string `json:"theme,omitempty"`
	FontSize       *string `json:"fontSize,omitempty"`
	ColorBlindMode *bool   `json:"colorBlindMode,omitempty"`
	ReducedMotion  *bool   `json:"reducedMotion,omitempty"`
}

// Form is the settings form controller. It is safe for concurrent use; the
// server keeps one per device.
type Form struct {
	svc *Service

	mu       sync.Mutex
	values   models.ThemeSettings
	current  models.ThemeSettings
	// baseline is what the last load or save put in values; edits are
	// measured against it for background refreshes.
	baseline models.ThemeSettings
	saving   bool
	loaded   bool
	signedIn bool
	notice   *Notice
}

func NewForm(svc *Service) *Form {
	defaults := models.DefaultThemeSettings()
	return &Form{svc: svc, values: defaults, current: defaults, baseline: defaults}
}

// Load runs reconciliation and resets the form to its result. Errors are
// also kept as the form's notice; the form stays usable either way.
func (f *Form) Load(ctx context.Context) (FormState, error) {
	rec, err := f.svc.Reconcile(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyLocked(rec, err)
	return f.stateLocked(), err
}

// Refresh is Load for background callers. It leaves the form alone while a
// save is running or the user has unsaved edits, including edits made while
// reconciliation was in flight. It reports whether the form was reloaded.
func (f *Form) Refresh(ctx context.Context) (bool, error) {
	f.mu.Lock()
	busy := f.saving || !f.values.SameValues(f.baseline)
	snapshot := f.values
	f.mu.Unlock()
	if busy {
		return false, nil
	}

	rec, err := f.svc.Reconcile(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saving || !f.values.SameValues(snapshot) || !f.values.SameValues(f.baseline) {
		return false, nil
	}
	f.applyLocked(rec, err)
	return true, err
}

func (f *Form) applyLocked(rec Reconciliation, err error) {
	f.current = rec.Base
	f.values = rec.Working
	f.baseline = rec.Working
	f.loaded = true
	f.signedIn = rec.SignedIn
	f.notice = nil
	switch {
	case err != nil:
		f.notice = &Notice{Level: NoticeError, Message: loadFailureMessage(err)}
	case len(rec.Warnings) > 0:
		f.notice = &Notice{Level: NoticeWarning, Message: rec.Warnings[0]}
	}
}

// Update applies edit. Theme and font size must be known values; nothing is
// applied when any field is invalid.
func (f *Form) Update(edit Edit) (FormState, error) {
	var (
		theme models.Theme
		size  models.FontSize
		err   error
	)
	if edit.Theme != nil {
		if theme, err = models.ParseTheme(*edit.Theme); err != nil {
			return f.State(), err
		}
	}
	if edit.FontSize != nil {
		if size, err = models.ParseFontSize(*edit.FontSize); err != nil {
			return f.State(), err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if edit.Theme != nil {
		f.values.Theme = theme
	}
	if edit.FontSize != nil {
		f.values.FontSize = size
	}
	if edit.ColorBlindMode != nil {
		f.values.ColorBlindMode = *edit.ColorBlindMode
	}
	if edit.ReducedMotion != nil {
		f.values.ReducedMotion = *edit.ReducedMotion
	}
	return f.stateLocked(), nil
}

func (f *Form) SetTheme(theme string) (FormState, error) {
	return f.Update(Edit{Theme: &theme})
}

func (f *Form) SetFontSize(size string) (FormState, error) {
	return f.Update(Edit{FontSize: &size})
}

func (f *Form) SetColorBlindMode(enabled bool) (FormState, error) {
	return f.Update(Edit{ColorBlindMode: &enabled})
}

func (f *Form) SetReducedMotion(enabled bool) (FormState, error) {
	return f.Update(Edit{ReducedMotion: &enabled})
}

// Save persists the edited values: the local store first, then both remote
// fields. A remote failure after the local write succeeded is reported but
// the local write stands.
func (f *Form) Save(ctx context.Context) (FormState, error) {
	f.mu.Lock()
	if f.saving {
		f.mu.Unlock()
		return f.State(), ErrSaveInProgress
	}
	if f.values.SameValues(f.current) {
		f.mu.Unlock()
		return f.State(), ErrNoChanges
	}
	f.saving = true
	f.notice = nil
	values := f.values
	f.mu.Unlock()

	saved, themeChanged, err := f.save(ctx, values)

	// A zero saved value means nothing reached the local store.
	localWritten := saved.Theme != ""

	f.mu.Lock()
	f.saving = false
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		f.signedIn = false
	case localWritten:
		f.signedIn = true
	}
	if err != nil {
		// The form stays unsaved so the user can retry the remote write.
		f.notice = &Notice{Level: NoticeError, Message: saveFailureMessage(err, localWritten)}
	} else {
		f.current = saved
		f.baseline = saved
		f.notice = &Notice{Level: NoticeSuccess, Message: "Settings saved"}
	}
	state := f.stateLocked()
	f.mu.Unlock()

	if err != nil {
		f.svc.metrics.Saved(saveOutcome(err))
	} else {
		f.svc.metrics.Saved("ok")
	}
	if localWritten && themeChanged {
		f.svc.broadcast.PublishThemeChanged()
	}
	return state, err
}

func (f *Form) save(ctx context.Context, values models.ThemeSettings) (models.ThemeSettings, bool, error) {
	logger := f.svc.loggerFor(ctx)

	user, err := f.svc.remote.CurrentUser(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load user profile for save")
		return models.ThemeSettings{}, false, &models.PersistenceError{Target: models.TargetRemote, Op: "read profile", Err: err}
	}
	if user == nil {
		return models.ThemeSettings{}, false, models.ErrAuthenticationRequired
	}

	saved, themeChanged, err := f.svc.persist(ctx, user, values)
	if err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to save settings")
		return saved, themeChanged, err
	}
	logger.Info().Str("user_id", user.ID).Stringer("settings", saved).Msg("Saved settings")
	return saved, themeChanged, nil
}

// State returns a snapshot of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// DismissNotice clears the notice shown above the form.
func (f *Form) DismissNotice() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = nil
}

func (f *Form) stateLocked() FormState {
	state := FormState{
		Values:     f.values,
		Current:    f.current,
		HasChanges: !f.values.SameValues(f.current),
		Saving:     f.saving,
		Loaded:     f.loaded,
		SignedIn:   f.signedIn,
	}
	if f.notice != nil {
		notice := *f.notice
		state.Notice = &notice
	}
	return state
}

func saveOutcome(err error) string {
	var persistErr *models.PersistenceError
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return "unauthenticated"
	case errors.As(err, &persistErr):
		return persistErr.Target + "_error"
	default:
		return "error"
	}
}

func saveFailureMessage(err error, localWritten bool) string {
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return "Sign in to save your settings."
	case localWritten:
		return "Settings were saved on this device but could not be synced to your profile."
	default:
		return "Settings could not be saved."
	}
}

func loadFailureMessage(err error) string {
	var persistErr *models.PersistenceError
	if errors.As(err, &persistErr) && persistErr.Target == models.TargetRemote {
		return "Your profile preferences could not be synced. Showing settings from this device."
	}
	return "Settings could not be loaded. Showing defaults."
}
