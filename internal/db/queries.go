package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type ThemeSettingsRow struct {
	ID             string
	Theme          string
	FontSize       string
	ColorBlindMode bool
	ReducedMotion  bool
	UpdatedAt      time.Time
}

const getThemeSettings = `
SELECT id, theme, font_size, color_blind_mode, reduced_motion, updated_at
FROM theme_settings
WHERE id = ?
`

func (q *Queries) GetThemeSettings(ctx context.Context, id string) (ThemeSettingsRow, error) {
	row := q.db.QueryRowContext(ctx, getThemeSettings, id)
	var i ThemeSettingsRow
	err := row.Scan(
		&i.ID,
		&i.Theme,
		&i.FontSize,
		&i.ColorBlindMode,
		&i.ReducedMotion,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertThemeSettings = `
INSERT INTO theme_settings (id, theme, font_size, color_blind_mode, reduced_motion, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    theme = excluded.theme,
    font_size = excluded.font_size,
    color_blind_mode = excluded.color_blind_mode,
    reduced_motion = excluded.reduced_motion,
    updated_at = excluded.updated_at
`

type UpsertThemeSettingsParams struct {
	ID             string
	Theme          string
	FontSize       string
	ColorBlindMode bool
	ReducedMotion  bool
	UpdatedAt      time.Time
}

func (q *Queries) UpsertThemeSettings(ctx context.Context, arg UpsertThemeSettingsParams) error {
	_, err := q.db.ExecContext(ctx, upsertThemeSettings,
		arg.ID,
		arg.Theme,
		arg.FontSize,
		arg.ColorBlindMode,
		arg.ReducedMotion,
		arg.UpdatedAt,
	)
	return err
}

const insertThemeSettingsIfAbsent = `
INSERT INTO theme_settings (id, theme, font_size, color_blind_mode, reduced_motion, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`

// InsertThemeSettingsIfAbsent seeds the record without clobbering a concurrent writer.
func (q *Queries) InsertThemeSettingsIfAbsent(ctx context.Context, arg UpsertThemeSettingsParams) error {
	_, err := q.db.ExecContext(ctx, insertThemeSettingsIfAbsent,
		arg.ID,
		arg.Theme,
		arg.FontSize,
		arg.ColorBlindMode,
		arg.ReducedMotion,
		arg.UpdatedAt,
	)
	return err
}
