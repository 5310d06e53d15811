package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/models"
)

func TestToggleSignedOutUpdatesLocalOnly(t *testing.T) {
	remote := &fakeProfile{}
	env := newTestEnv(t, remote, nil)
	ctx := context.Background()

	var events []broadcast.Event
	env.subject.Subscribe(func(event broadcast.Event) { events = append(events, event) })

	toggle := NewToggle(env.svc)
	toggle.Mount(ctx)
	defer toggle.Unmount()

	theme, err := toggle.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if theme != models.ThemeLight || toggle.Theme() != models.ThemeLight {
		t.Fatalf("Toggle() = %q, Theme() = %q, want light", theme, toggle.Theme())
	}
	if got := env.stored(t).Theme; got != models.ThemeLight {
		t.Fatalf("local theme = %q, want light", got)
	}
	if len(events) != 1 || events[0].Kind != broadcast.KindThemeChanged {
		t.Fatalf("events = %+v, want one theme_changed", events)
	}
	if n := len(remote.recordedUpdates()); n != 0 {
		t.Fatalf("remote writes = %d, want 0", n)
	}
	if toggle.Loading() {
		t.Fatalf("Loading() = true after toggle returned")
	}
}

func TestToggleLeavesOtherLocalFieldsAlone(t *testing.T) {
	seed := models.ThemeSettings{Theme: models.ThemeLight, FontSize: models.FontSizeLarge, ColorBlindMode: true}
	env := newTestEnv(t, &fakeProfile{}, &seed)

	theme, err := env.svc.ToggleLocalTheme(context.Background())
	if err != nil {
		t.Fatalf("ToggleLocalTheme() error = %v", err)
	}
	if theme != models.ThemeDark {
		t.Fatalf("ToggleLocalTheme() = %q, want dark", theme)
	}
	want := seed
	want.Theme = models.ThemeDark
	if got := env.stored(t); !got.SameValues(want) || !got.UpdatedAt.Equal(testNow) {
		t.Fatalf("local store = %s at %s, want %s at %s", got, got.UpdatedAt, want, testNow)
	}
}

func TestToggleMergesThemeIntoRemotePreferences(t *testing.T) {
	remote := signedIn(strPtr(`{"theme":"dark","fontSize":"large","density":"compact"}`), nil)
	env := newTestEnv(t, remote, nil)
	toggle := NewToggle(env.svc)

	if _, err := toggle.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	updates := remote.recordedUpdates()
	if len(updates) != 1 {
		t.Fatalf("remote writes = %d, want 1", len(updates))
	}
	if _, ok := updates[0].fields[models.FieldAccessibilitySettings]; ok {
		t.Fatalf("toggle wrote accessibility_settings")
	}
	raw := updates[0].fields[models.FieldDisplayPreferences]
	prefs, err := models.ParseDisplayPreferences(&raw)
	if err != nil {
		t.Fatalf("merged payload %s does not parse: %v", raw, err)
	}
	if prefs.Theme == nil || *prefs.Theme != "light" {
		t.Fatalf("merged theme = %v, want light", prefs.Theme)
	}
	if prefs.FontSize == nil || *prefs.FontSize != "large" {
		t.Fatalf("merged fontSize = %v, want large", prefs.FontSize)
	}
	if _, ok := prefs.Extra["density"]; !ok {
		t.Fatalf("merged payload %s lost the density key", raw)
	}
}

func TestToggleDefaultsFontSizeForUnreadablePreferences(t *testing.T) {
	remote := signedIn(strPtr(`not json`), nil)
	env := newTestEnv(t, remote, nil)

	if _, err := NewToggle(env.svc).Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	updates := remote.recordedUpdates()
	if len(updates) != 1 {
		t.Fatalf("remote writes = %d, want 1", len(updates))
	}
	want := models.EncodeDisplayPreferences(models.ThemeLight, models.FontSizeMedium)
	if got := updates[0].fields[models.FieldDisplayPreferences]; got != want {
		t.Fatalf("display_preferences = %s, want %s", got, want)
	}
}

func TestToggleRemoteFailureIsNotReturned(t *testing.T) {
	remote := signedIn(nil, nil)
	remote.updateErr = errBoom
	env := newTestEnv(t, remote, nil)

	theme, err := NewToggle(env.svc).Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle() error = %v, want nil", err)
	}
	if theme != models.ThemeLight || env.stored(t).Theme != models.ThemeLight {
		t.Fatalf("theme = %q, want light locally despite remote failure", theme)
	}
}

func TestToggleLocalFailureIsReturned(t *testing.T) {
	svc := NewService(Options{Local: failingLocal{err: errBoom}, Remote: &fakeProfile{}, Logger: zerolog.Nop()})

	_, err := NewToggle(svc).Toggle(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Toggle() error = %v, want boom", err)
	}
}

func TestToggleRejectsReentry(t *testing.T) {
	gate := newGatedProfile(signedIn(nil, nil))
	env := newTestEnv(t, gate, nil)
	toggle := NewToggle(env.svc)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := toggle.Toggle(ctx)
		done <- err
	}()
	<-gate.entered

	if !toggle.Loading() {
		t.Fatalf("Loading() = false during toggle")
	}
	if _, err := toggle.Toggle(ctx); !errors.Is(err, ErrToggleInProgress) {
		t.Fatalf("second Toggle() error = %v, want ErrToggleInProgress", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("first Toggle() error = %v", err)
	}
	if got := env.stored(t).Theme; got != models.ThemeLight {
		t.Fatalf("local theme = %q, want a single flip to light", got)
	}
}

func TestMountedTogglesFollowThemeChanges(t *testing.T) {
	env := newTestEnv(t, &fakeProfile{}, nil)
	ctx := context.Background()

	header := NewToggle(env.svc)
	sidebar := NewToggle(env.svc)
	header.Mount(ctx)
	sidebar.Mount(ctx)
	sidebar.Mount(ctx)

	if n := env.subject.SubscriberCount(); n != 2 {
		t.Fatalf("SubscriberCount() = %d, want 2", n)
	}
	if sidebar.Theme() != models.ThemeDark {
		t.Fatalf("mounted theme = %q, want dark", sidebar.Theme())
	}

	if _, err := header.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if sidebar.Theme() != models.ThemeLight {
		t.Fatalf("sidebar theme = %q after header toggle, want light", sidebar.Theme())
	}

	sidebar.Unmount()
	if _, err := header.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if sidebar.Theme() != models.ThemeLight {
		t.Fatalf("unmounted sidebar theme = %q, want it to stay light", sidebar.Theme())
	}
	header.Unmount()
	if n := env.subject.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() = %d after unmount, want 0", n)
	}
}

func TestFormSaveUpdatesMountedToggle(t *testing.T) {
	env := newTestEnv(t, signedIn(nil, nil), nil)
	ctx := context.Background()

	toggle := NewToggle(env.svc)
	toggle.Mount(ctx)
	defer toggle.Unmount()

	form := NewForm(env.svc)
	if _, err := form.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	form.SetTheme("light")
	if _, err := form.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if toggle.Theme() != models.ThemeLight {
		t.Fatalf("toggle theme = %q after save, want light", toggle.Theme())
	}
}

func TestFormSaveAfterToggleResyncsToggle(t *testing.T) {
	remote := signedIn(
		strPtr(`{"theme":"dark","fontSize":"medium"}`),
		strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
	)
	env := newTestEnv(t, remote, nil)
	ctx := context.Background()

	toggle := NewToggle(env.svc)
	toggle.Mount(ctx)
	defer toggle.Unmount()

	form := NewForm(env.svc)
	if _, err := form.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := toggle.Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	var events []broadcast.Event
	env.subject.Subscribe(func(event broadcast.Event) { events = append(events, event) })

	// The form still holds the theme it loaded before the toggle.
	if _, err := form.SetFontSize("large"); err != nil {
		t.Fatalf("SetFontSize() error = %v", err)
	}
	if _, err := form.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stored := env.stored(t)
	if toggle.Theme() != stored.Theme {
		t.Fatalf("toggle theme = %q, local store theme = %q", toggle.Theme(), stored.Theme)
	}
	if len(events) != 1 || events[0].Kind != broadcast.KindThemeChanged {
		t.Fatalf("events = %+v, want one theme_changed from save", events)
	}
}

func TestFormSaveWithoutThemeChangeDoesNotBroadcast(t *testing.T) {
	env := newTestEnv(t, signedIn(nil, nil), nil)
	ctx := context.Background()

	form := NewForm(env.svc)
	if _, err := form.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var events []broadcast.Event
	env.subject.Subscribe(func(event broadcast.Event) { events = append(events, event) })

	form.SetFontSize("small")
	if _, err := form.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestToggleKeepsLocalFontSizeWhenRemoteHasNone(t *testing.T) {
	remote := signedIn(
		strPtr(`{"theme":"dark"}`),
		strPtr(`{"colorBlindMode":false,"reducedMotion":false}`),
	)
	seed := models.ThemeSettings{Theme: models.ThemeDark, FontSize: models.FontSizeLarge}
	env := newTestEnv(t, remote, &seed)
	ctx := context.Background()

	if _, err := NewToggle(env.svc).Toggle(ctx); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	rec, err := env.svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if rec.Working.FontSize != models.FontSizeLarge {
		t.Fatalf("working fontSize = %q after toggle, want large", rec.Working.FontSize)
	}
	if rec.Working.Theme != models.ThemeLight {
		t.Fatalf("working theme = %q, want light", rec.Working.Theme)
	}
	if rec.HasChanges {
		t.Fatalf("HasChanges = true, want false")
	}
}
