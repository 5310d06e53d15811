package settings

import (
	"context"
	"fmt"
	"slices"

	"github.com/codr1/dashprefs/internal/models"
	"github.com/codr1/dashprefs/internal/profile"
)

// Reconciliation outcomes, also used as metric labels.
const (
	OutcomeLocalOnly     = "local_only"
	OutcomeInSync        = "in_sync"
	OutcomeRemoteApplied = "remote_applied"
	OutcomeRemoteSeeded  = "remote_seeded"
	OutcomeError         = "error"
)

// Reconciliation is the result of merging the remote profile into the local
// settings. Base is what the local store holds; Working is what the form
// should show.
type Reconciliation struct {
	Base     models.ThemeSettings
	Working  models.ThemeSettings
	SignedIn bool
	UserID   string

	HasChanges               bool
	NeedsDisplayPrefsUpdate  bool
	NeedsAccessibilityUpdate bool
	Warnings                 []string
	Outcome                  string
}

// NeedsRemoteUpdate reports whether any remote field must be rewritten.
func (r Reconciliation) NeedsRemoteUpdate() bool {
	return r.NeedsDisplayPrefsUpdate || r.NeedsAccessibilityUpdate
}

// RemoteFields serializes the flagged fields from the working state.
func (r Reconciliation) RemoteFields() map[string]string {
	fields := make(map[string]string, 2)
	if r.NeedsDisplayPrefsUpdate {
		fields[models.FieldDisplayPreferences] = models.EncodeDisplayPreferences(r.Working.Theme, r.Working.FontSize)
	}
	if r.NeedsAccessibilityUpdate {
		fields[models.FieldAccessibilitySettings] = models.EncodeAccessibilitySettings(r.Working.ColorBlindMode, r.Working.ReducedMotion)
	}
	return fields
}

// Reconcile merges user's stored preferences over base. A valid remote value
// that differs from base wins; anything missing or unusable on the remote
// side is flagged for a rewrite from the working state. It performs no I/O.
func Reconcile(base models.ThemeSettings, user *profile.User) Reconciliation {
	rec := Reconciliation{Base: base, Working: base, Outcome: OutcomeLocalOnly}
	if user == nil {
		return rec
	}
	rec.SignedIn = true
	rec.UserID = user.ID

	if prefs, err := models.ParseDisplayPreferences(user.DisplayPreferences); err != nil {
		rec.NeedsDisplayPrefsUpdate = true
	} else {
		if prefs.Theme != nil {
			theme := models.Theme(*prefs.Theme)
			switch {
			case !theme.Valid():
				rec.NeedsDisplayPrefsUpdate = true
			case theme != base.Theme:
				rec.Working.Theme = theme
				rec.HasChanges = true
			}
		}
		if prefs.FontSize != nil {
			size := models.FontSize(*prefs.FontSize)
			if size != base.FontSize {
				if !size.Valid() {
					rec.Warnings = append(rec.Warnings, fmt.Sprintf("font size %q is not a known size", size))
				}
				rec.Working.FontSize = size
				rec.HasChanges = true
			}
		}
		if slices.Contains(prefs.Invalid, "theme") || slices.Contains(prefs.Invalid, "fontSize") {
			rec.NeedsDisplayPrefsUpdate = true
		}
	}

	if access, err := models.ParseAccessibilitySettings(user.AccessibilitySettings); err != nil {
		rec.NeedsAccessibilityUpdate = true
	} else {
		if access.ColorBlindMode != nil && *access.ColorBlindMode != base.ColorBlindMode {
			rec.Working.ColorBlindMode = *access.ColorBlindMode
			rec.HasChanges = true
		}
		if access.ReducedMotion != nil && *access.ReducedMotion != base.ReducedMotion {
			rec.Working.ReducedMotion = *access.ReducedMotion
			rec.HasChanges = true
		}
		if len(access.Invalid) > 0 {
			rec.NeedsAccessibilityUpdate = true
		}
	}

	switch {
	case rec.NeedsRemoteUpdate():
		rec.Outcome = OutcomeRemoteSeeded
	case rec.HasChanges:
		rec.Outcome = OutcomeRemoteApplied
	default:
		rec.Outcome = OutcomeInSync
	}
	return rec
}

// Reconcile reads the local settings and the signed-in user's profile, merges
// them, and writes back whichever remote fields were flagged. The returned
// Reconciliation is usable even when err is non-nil: on a local read failure
// it carries the defaults, on a remote failure the local values.
func (s *Service) Reconcile(ctx context.Context) (Reconciliation, error) {
	logger := s.loggerFor(ctx)

	base, err := s.local.Read(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read local settings")
		defaults := models.DefaultThemeSettings()
		s.metrics.Reconciled(OutcomeError)
		return Reconciliation{Base: defaults, Working: defaults, Outcome: OutcomeError}, err
	}

	user, err := s.remote.CurrentUser(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load user profile")
		s.metrics.Reconciled(OutcomeError)
		return Reconciliation{Base: base, Working: base, Outcome: OutcomeError},
			&models.PersistenceError{Target: models.TargetRemote, Op: "read profile", Err: err}
	}

	rec := Reconcile(base, user)
	for _, warning := range rec.Warnings {
		logger.Warn().Str("user_id", rec.UserID).Msg(warning)
	}

	if rec.NeedsRemoteUpdate() {
		if err := s.updateRemote(ctx, rec.UserID, rec.RemoteFields()); err != nil {
			logger.Error().Err(err).Str("user_id", rec.UserID).Msg("Failed to seed remote preferences")
			s.metrics.Reconciled(OutcomeError)
			return rec, err
		}
		logger.Info().
			Str("user_id", rec.UserID).
			Bool("display_preferences", rec.NeedsDisplayPrefsUpdate).
			Bool("accessibility_settings", rec.NeedsAccessibilityUpdate).
			Msg("Seeded remote preferences")
	}

	s.metrics.Reconciled(rec.Outcome)
	return rec, nil
}
