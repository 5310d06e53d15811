// Package store holds the per-device Local Preference Store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/db"
	"github.com/codr1/dashprefs/internal/models"
)

const queryTimeout = 5 * time.Second

type settingsQueries interface {
	GetThemeSettings(ctx context.Context, id string) (db.ThemeSettingsRow, error)
	UpsertThemeSettings(ctx context.Context, arg db.UpsertThemeSettingsParams) error
	InsertThemeSettingsIfAbsent(ctx context.Context, arg db.UpsertThemeSettingsParams) error
}

// Local keeps the single "current" ThemeSettings record in SQLite.
type Local struct {
	queries settingsQueries
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLocal(queries settingsQueries, logger zerolog.Logger) *Local {
	return &Local{
		queries: queries,
		logger:  logger.With().Str("component", "local_store").Logger(),
		now:     time.Now,
	}
}

// Read returns the stored record. The first read on an empty store seeds and
// returns the defaults.
func (l *Local) Read(ctx context.Context) (models.ThemeSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row, err := l.queries.GetThemeSettings(ctx, models.CurrentSettingsID)
	if err == nil {
		return settingsFromRow(row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ThemeSettings{}, &models.PersistenceError{Target: models.TargetLocal, Op: "read settings", Err: err}
	}

	defaults := models.DefaultThemeSettings()
	defaults.UpdatedAt = l.now().UTC()
	if err := l.queries.InsertThemeSettingsIfAbsent(ctx, paramsFromSettings(defaults)); err != nil {
		return models.ThemeSettings{}, &models.PersistenceError{Target: models.TargetLocal, Op: "seed settings", Err: err}
	}
	l.logger.Info().Msg("Seeded default theme settings")

	row, err = l.queries.GetThemeSettings(ctx, models.CurrentSettingsID)
	if err != nil {
		return models.ThemeSettings{}, &models.PersistenceError{Target: models.TargetLocal, Op: "read settings", Err: err}
	}
	return settingsFromRow(row), nil
}

// Write replaces the record wholesale. A zero UpdatedAt is stamped with the current time.
func (l *Local) Write(ctx context.Context, settings models.ThemeSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = l.now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := l.queries.UpsertThemeSettings(ctx, paramsFromSettings(settings)); err != nil {
		return &models.PersistenceError{Target: models.TargetLocal, Op: "write settings", Err: err}
	}
	l.logger.Debug().Str("settings", settings.String()).Msg("Wrote theme settings")
	return nil
}

func settingsFromRow(row db.ThemeSettingsRow) models.ThemeSettings {
	return models.ThemeSettings{
		Theme:          models.Theme(row.Theme),
		FontSize:       models.FontSize(row.FontSize),
		ColorBlindMode: row.ColorBlindMode,
		ReducedMotion:  row.ReducedMotion,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func paramsFromSettings(settings models.ThemeSettings) db.UpsertThemeSettingsParams {
	return db.UpsertThemeSettingsParams{
		ID:             models.CurrentSettingsID,
		Theme:          string(settings.Theme),
		FontSize:       string(settings.FontSize),
		ColorBlindMode: settings.ColorBlindMode,
		ReducedMotion:  settings.ReducedMotion,
		UpdatedAt:      settings.UpdatedAt.UTC(),
	}
}
