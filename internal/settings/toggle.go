package settings

import (
	"context"
	"sync"
	"time"

	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/models"
)

const resyncTimeout = 5 * time.Second

// ToggleLocalTheme flips the theme in the local store and announces the
// change. The rest of the record is left as stored.
func (s *Service) ToggleLocalTheme(ctx context.Context) (models.Theme, error) {
	current, err := s.local.Read(ctx)
	if err != nil {
		return "", err
	}
	current.Theme = current.Theme.Toggled()
	current.UpdatedAt = s.now().UTC()
	if err := s.local.Write(ctx, current); err != nil {
		return "", err
	}
	s.broadcast.PublishThemeChanged()
	return current.Theme, nil
}

// Toggle is the light/dark switch shown on every page.
type Toggle struct {
	svc *Service

	mu          sync.Mutex
	theme       models.Theme
	loading     bool
	unsubscribe func()
}

func NewToggle(svc *Service) *Toggle {
	return &Toggle{svc: svc, theme: models.ThemeDark}
}

// Mount reads the current theme and follows theme-changed events until
// Unmount. Mounting twice keeps a single subscription.
func (t *Toggle) Mount(ctx context.Context) {
	t.resync(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		return
	}
	t.unsubscribe = t.svc.broadcast.Subscribe(func(event broadcast.Event) {
		if event.Kind != broadcast.KindThemeChanged {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		t.resync(ctx)
	})
}

func (t *Toggle) Unmount() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (t *Toggle) Theme() models.Theme {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.theme
}

func (t *Toggle) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Toggle flips the theme locally and, when someone is signed in, merges it
// into their remote display preferences. Remote failures are logged only.
func (t *Toggle) Toggle(ctx context.Context) (models.Theme, error) {
	t.mu.Lock()
	if t.loading {
		t.mu.Unlock()
		return t.Theme(), ErrToggleInProgress
	}
	t.loading = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.loading = false
		t.mu.Unlock()
	}()

	logger := t.svc.loggerFor(ctx)

	if _, err := t.svc.ToggleLocalTheme(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to toggle theme")
		return t.Theme(), err
	}
	theme := t.resync(ctx)

	remoteWritten := false
	user, err := t.svc.remote.CurrentUser(ctx)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to load user profile after theme toggle")
	case user != nil:
		merged := models.MergeDisplayTheme(user.DisplayPreferences, theme)
		fields := map[string]string{models.FieldDisplayPreferences: merged}
		if err := t.svc.updateRemote(ctx, user.ID, fields); err != nil {
			logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to sync theme to profile")
		} else {
			remoteWritten = true
		}
	}

	t.svc.metrics.Toggled(remoteWritten)
	logger.Info().Str("theme", string(theme)).Bool("remote", remoteWritten).Msg("Toggled theme")
	return theme, nil
}

// resync re-reads the local theme. On a read failure the displayed theme is
// kept.
func (t *Toggle) resync(ctx context.Context) models.Theme {
	current, err := t.svc.local.Read(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.svc.loggerFor(ctx).Error().Err(err).Msg("Failed to read local theme")
		return t.theme
	}
	t.theme = current.Theme
	return t.theme
}
