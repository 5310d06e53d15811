// Package settings implements the settings form, its load-time reconciliation
// between the local store and the remote profile, and the theme toggle.
package settings

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/metrics"
	"github.com/codr1/dashprefs/internal/models"
	"github.com/codr1/dashprefs/internal/profile"
)

var (
	ErrSaveInProgress   = errors.New("save already in progress")
	ErrNoChanges        = errors.New("no unsaved changes")
	ErrToggleInProgress = errors.New("theme toggle already in progress")
)

// LocalStore is the per-device settings record.
type LocalStore interface {
	Read(ctx context.Context) (models.ThemeSettings, error)
	Write(ctx context.Context, settings models.ThemeSettings) error
}

type Broadcaster interface {
	PublishThemeChanged()
	Subscribe(fn func(broadcast.Event)) func()
}

type Options struct {
	Local      LocalStore
	Remote     profile.Accessor
	Broadcast  Broadcaster
	Collection string
	Metrics    *metrics.Collector
	Logger     zerolog.Logger
}

// Service wires the stores together. One Service is created per process and
// shared by every form and toggle.
type Service struct {
	local      LocalStore
	remote     profile.Accessor
	broadcast  Broadcaster
	collection string
	metrics    *metrics.Collector
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(opts Options) *Service {
	remote := opts.Remote
	if remote == nil {
		remote = profile.Offline{}
	}
	bus := opts.Broadcast
	if bus == nil {
		bus = broadcast.NewSubject()
	}
	collection := opts.Collection
	if collection == "" {
		collection = "users"
	}
	return &Service{
		local:      opts.Local,
		remote:     remote,
		broadcast:  bus,
		collection: collection,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With().Str("component", "settings").Logger(),
		now:        time.Now,
	}
}

// CurrentSettings returns the locally applied settings, falling back to the
// defaults when the local store cannot be read.
func (s *Service) CurrentSettings(ctx context.Context) models.ThemeSettings {
	current, err := s.local.Read(ctx)
	if err != nil {
		s.loggerFor(ctx).Error().Err(err).Msg("Failed to read local settings, using defaults")
		return models.DefaultThemeSettings()
	}
	return current
}

// CurrentUser is a pass-through used by handlers to report sign-in state.
func (s *Service) CurrentUser(ctx context.Context) (*profile.User, error) {
	return s.remote.CurrentUser(ctx)
}

// persist writes the full record locally, then both remote fields. A remote
// failure after a successful local write is returned but not rolled back.
// themeChanged compares against the stored record, which a toggle may have
// changed since the caller last read it.
func (s *Service) persist(ctx context.Context, user *profile.User, values models.ThemeSettings) (saved models.ThemeSettings, themeChanged bool, err error) {
	previous, readErr := s.local.Read(ctx)
	themeChanged = readErr != nil || previous.Theme != values.Theme

	values.UpdatedAt = s.now().UTC()
	if err := s.local.Write(ctx, values); err != nil {
		return models.ThemeSettings{}, false, err
	}

	fields := map[string]string{
		models.FieldDisplayPreferences:    models.EncodeDisplayPreferences(values.Theme, values.FontSize),
		models.FieldAccessibilitySettings: models.EncodeAccessibilitySettings(values.ColorBlindMode, values.ReducedMotion),
	}
	if err := s.updateRemote(ctx, user.ID, fields); err != nil {
		return values, themeChanged, err
	}
	return values, themeChanged, nil
}

func (s *Service) updateRemote(ctx context.Context, userID string, fields map[string]string) error {
	err := s.remote.UpdateFields(ctx, s.collection, userID, fields)
	for field := range fields {
		s.metrics.RemoteWrite(field, err)
	}
	if err != nil {
		return &models.PersistenceError{Target: models.TargetRemote, Op: "update profile fields", Err: err}
	}
	return nil
}

func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	return &s.logger
}
