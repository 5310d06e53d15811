// Package testutil has helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/dashprefs/internal/db"
	"github.com/codr1/dashprefs/internal/models"
)

// NewTestDB opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

// SeedSettings writes settings as the device's current record.
func SeedSettings(t *testing.T, database *db.DB, settings models.ThemeSettings) {
	t.Helper()

	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	err := database.Queries.UpsertThemeSettings(context.Background(), db.UpsertThemeSettingsParams{
		ID:             models.CurrentSettingsID,
		Theme:          string(settings.Theme),
		FontSize:       string(settings.FontSize),
		ColorBlindMode: settings.ColorBlindMode,
		ReducedMotion:  settings.ReducedMotion,
		UpdatedAt:      updatedAt,
	})
	if err != nil {
		t.Fatalf("seed settings: %v", err)
	}
}
