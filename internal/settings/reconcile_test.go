package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/models"
	"github.com/codr1/dashprefs/internal/profile"
)

func TestReconcilePure(t *testing.T) {
	base := models.ThemeSettings{Theme: models.ThemeDark, FontSize: models.FontSizeSmall}

	tests := []struct {
		name         string
		user         *profile.User
		wantWorking  models.ThemeSettings
		wantChanges  bool
		wantDisplay  bool
		wantAccess   bool
		wantWarnings int
		wantOutcome  string
		wantSignedIn bool
	}{
		{
			name:        "signed out",
			wantWorking: base,
			wantOutcome: OutcomeLocalOnly,
		},
		{
			name: "remote values win",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"light","fontSize":"medium"}`),
				AccessibilitySettings: strPtr(`{"colorBlindMode":true,"reducedMotion":false}`),
			},
			wantWorking:  models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeMedium, ColorBlindMode: true},
			wantChanges:  true,
			wantOutcome:  OutcomeRemoteApplied,
			wantSignedIn: true,
		},
		{
			name: "in sync",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"version":1,"theme":"dark","fontSize":"small"}`),
				AccessibilitySettings: strPtr(`{"version":1,"colorBlindMode":false,"reducedMotion":false}`),
			},
			wantWorking:  base,
			wantOutcome:  OutcomeInSync,
			wantSignedIn: true,
		},
		{
			name:         "both fields absent",
			user:         &profile.User{ID: "u"},
			wantWorking:  base,
			wantDisplay:  true,
			wantAccess:   true,
			wantOutcome:  OutcomeRemoteSeeded,
			wantSignedIn: true,
		},
		{
			name: "unknown theme keeps local and flags rewrite",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"purple"}`),
				AccessibilitySettings: strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
			},
			wantWorking:  base,
			wantDisplay:  true,
			wantOutcome:  OutcomeRemoteSeeded,
			wantSignedIn: true,
		},
		{
			name: "malformed accessibility flags rewrite",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"dark","fontSize":"small"}`),
				AccessibilitySettings: strPtr(`{not json`),
			},
			wantWorking:  base,
			wantAccess:   true,
			wantOutcome:  OutcomeRemoteSeeded,
			wantSignedIn: true,
		},
		{
			name: "non-boolean flag is rewritten, valid sibling applied",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"dark","fontSize":"small"}`),
				AccessibilitySettings: strPtr(`{"colorBlindMode":"yes","reducedMotion":true}`),
			},
			wantWorking:  models.ThemeSettings{Theme: models.ThemeDark, FontSize: models.FontSizeSmall, ReducedMotion: true},
			wantChanges:  true,
			wantAccess:   true,
			wantOutcome:  OutcomeRemoteSeeded,
			wantSignedIn: true,
		},
		{
			name: "unknown font size applied with warning",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"dark","fontSize":"huge"}`),
				AccessibilitySettings: strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
			},
			wantWorking:  models.ThemeSettings{Theme: models.ThemeDark, FontSize: models.FontSize("huge")},
			wantChanges:  true,
			wantWarnings: 1,
			wantOutcome:  OutcomeRemoteApplied,
			wantSignedIn: true,
		},
		{
			name: "numeric font size flags rewrite",
			user: &profile.User{
				ID:                    "u",
				DisplayPreferences:    strPtr(`{"theme":"dark","fontSize":14}`),
				AccessibilitySettings: strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
			},
			wantWorking:  base,
			wantDisplay:  true,
			wantOutcome:  OutcomeRemoteSeeded,
			wantSignedIn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(base, tt.user)
			if !got.Working.SameValues(tt.wantWorking) {
				t.Fatalf("Working = %s, want %s", got.Working, tt.wantWorking)
			}
			if !got.Base.SameValues(base) {
				t.Fatalf("Base = %s, want %s", got.Base, base)
			}
			if got.HasChanges != tt.wantChanges {
				t.Fatalf("HasChanges = %v, want %v", got.HasChanges, tt.wantChanges)
			}
			if got.NeedsDisplayPrefsUpdate != tt.wantDisplay {
				t.Fatalf("NeedsDisplayPrefsUpdate = %v, want %v", got.NeedsDisplayPrefsUpdate, tt.wantDisplay)
			}
			if got.NeedsAccessibilityUpdate != tt.wantAccess {
				t.Fatalf("NeedsAccessibilityUpdate = %v, want %v", got.NeedsAccessibilityUpdate, tt.wantAccess)
			}
			if len(got.Warnings) != tt.wantWarnings {
				t.Fatalf("Warnings = %v, want %d", got.Warnings, tt.wantWarnings)
			}
			if got.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome = %q, want %q", got.Outcome, tt.wantOutcome)
			}
			if got.SignedIn != tt.wantSignedIn {
				t.Fatalf("SignedIn = %v, want %v", got.SignedIn, tt.wantSignedIn)
			}
		})
	}
}

func TestServiceReconcileSeedsMissingFields(t *testing.T) {
	remote := signedIn(nil, nil)
	env := newTestEnv(t, remote, nil)

	rec, err := env.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rec.HasChanges {
		t.Fatalf("HasChanges = true, want false")
	}

	updates := remote.recordedUpdates()
	if len(updates) != 1 {
		t.Fatalf("remote writes = %d, want 1", len(updates))
	}
	update := updates[0]
	if update.collection != "users" || update.userID != "user-1" {
		t.Fatalf("update target = %s/%s, want users/user-1", update.collection, update.userID)
	}
	wantDisplay := models.EncodeDisplayPreferences(models.ThemeDark, models.FontSizeMedium)
	wantAccess := models.EncodeAccessibilitySettings(false, false)
	if got := update.fields[models.FieldDisplayPreferences]; got != wantDisplay {
		t.Fatalf("display_preferences = %s, want %s", got, wantDisplay)
	}
	if got := update.fields[models.FieldAccessibilitySettings]; got != wantAccess {
		t.Fatalf("accessibility_settings = %s, want %s", got, wantAccess)
	}
}

func TestServiceReconcileAppliesRemoteWithoutTouchingLocal(t *testing.T) {
	remote := signedIn(
		strPtr(`{"theme":"light","fontSize":"medium"}`),
		strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
	)
	seed := models.ThemeSettings{Theme: models.ThemeDark, FontSize: models.FontSizeSmall}
	env := newTestEnv(t, remote, &seed)

	rec, err := env.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	want := models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeMedium}
	if !rec.Working.SameValues(want) {
		t.Fatalf("Working = %s, want %s", rec.Working, want)
	}
	if !rec.HasChanges {
		t.Fatalf("HasChanges = false, want true")
	}
	if got := env.stored(t); !got.SameValues(seed) {
		t.Fatalf("local store = %s, want untouched %s", got, seed)
	}
	if n := len(remote.recordedUpdates()); n != 0 {
		t.Fatalf("remote writes = %d, want 0", n)
	}
}

func TestServiceReconcileInvalidThemeRewritesDisplayOnly(t *testing.T) {
	remote := signedIn(
		strPtr(`{"theme":"purple"}`),
		strPtr(`{"colorBlindMode":true,"reducedMotion":false}`),
	)
	seed := models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeLarge}
	env := newTestEnv(t, remote, &seed)

	rec, err := env.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rec.Working.Theme != models.ThemeLight {
		t.Fatalf("Working.Theme = %q, want light", rec.Working.Theme)
	}

	updates := remote.recordedUpdates()
	if len(updates) != 1 {
		t.Fatalf("remote writes = %d, want 1", len(updates))
	}
	if _, ok := updates[0].fields[models.FieldAccessibilitySettings]; ok {
		t.Fatalf("accessibility_settings rewritten, want display_preferences only")
	}
	// The rewrite carries the working state, which already includes the remote colorBlindMode.
	want := models.EncodeDisplayPreferences(models.ThemeLight, models.FontSizeLarge)
	if got := updates[0].fields[models.FieldDisplayPreferences]; got != want {
		t.Fatalf("display_preferences = %s, want %s", got, want)
	}
}

func TestServiceReconcileTwiceWritesOnce(t *testing.T) {
	remote := signedIn(strPtr(""), strPtr(`[1,2]`))
	env := newTestEnv(t, remote, nil)

	for i := 0; i < 2; i++ {
		if _, err := env.svc.Reconcile(context.Background()); err != nil {
			t.Fatalf("Reconcile() #%d error = %v", i+1, err)
		}
	}
	if n := len(remote.recordedUpdates()); n != 1 {
		t.Fatalf("remote writes = %d, want 1", n)
	}
}

func TestServiceReconcileSignedOutStaysLocal(t *testing.T) {
	remote := &fakeProfile{}
	seed := models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeExtraLarge, ReducedMotion: true}
	env := newTestEnv(t, remote, &seed)

	rec, err := env.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rec.SignedIn || rec.HasChanges || rec.Outcome != OutcomeLocalOnly {
		t.Fatalf("Reconcile() = %+v, want local only", rec)
	}
	if !rec.Working.SameValues(seed) {
		t.Fatalf("Working = %s, want %s", rec.Working, seed)
	}
}

func TestServiceReconcileErrors(t *testing.T) {
	t.Run("local read failure falls back to defaults", func(t *testing.T) {
		svc := NewService(Options{Local: failingLocal{err: errBoom}, Remote: signedIn(nil, nil), Logger: zerolog.Nop()})
		rec, err := svc.Reconcile(context.Background())
		if !errors.Is(err, errBoom) {
			t.Fatalf("Reconcile() error = %v, want boom", err)
		}
		if !rec.Working.SameValues(models.DefaultThemeSettings()) {
			t.Fatalf("Working = %s, want defaults", rec.Working)
		}
	})

	t.Run("profile failure keeps local values", func(t *testing.T) {
		remote := &fakeProfile{currentErr: errBoom}
		seed := models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeLarge}
		env := newTestEnv(t, remote, &seed)

		rec, err := env.svc.Reconcile(context.Background())
		var persistErr *models.PersistenceError
		if !errors.As(err, &persistErr) || persistErr.Target != models.TargetRemote {
			t.Fatalf("Reconcile() error = %v, want remote PersistenceError", err)
		}
		if !rec.Working.SameValues(seed) {
			t.Fatalf("Working = %s, want %s", rec.Working, seed)
		}
	})

	t.Run("seed write failure is reported", func(t *testing.T) {
		remote := signedIn(nil, nil)
		remote.updateErr = errBoom
		env := newTestEnv(t, remote, nil)

		rec, err := env.svc.Reconcile(context.Background())
		if !errors.Is(err, errBoom) {
			t.Fatalf("Reconcile() error = %v, want boom", err)
		}
		if !rec.NeedsDisplayPrefsUpdate || !rec.NeedsAccessibilityUpdate {
			t.Fatalf("flags lost on failure: %+v", rec)
		}
	})
}
