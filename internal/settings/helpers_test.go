package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/db"
	"github.com/codr1/dashprefs/internal/models"
	"github.com/codr1/dashprefs/internal/profile"
	"github.com/codr1/dashprefs/internal/store"
	"github.com/codr1/dashprefs/internal/testutil"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type fieldUpdate struct {
	collection string
	userID     string
	fields     map[string]string
}

// fakeProfile applies UpdateFields to its user so later reads see the writes.
type fakeProfile struct {
	mu         sync.Mutex
	user       *profile.User
	currentErr error
	updateErr  error
	updates    []fieldUpdate
}

func signedIn(display, accessibility *string) *fakeProfile {
	return &fakeProfile{user: &profile.User{
		ID:                    "user-1",
		DisplayPreferences:    display,
		AccessibilitySettings: accessibility,
	}}
}

func (f *fakeProfile) CurrentUser(context.Context) (*profile.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.user == nil {
		return nil, nil
	}
	user := *f.user
	return &user, nil
}

func (f *fakeProfile) UpdateFields(_ context.Context, collection, userID string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	f.updates = append(f.updates, fieldUpdate{collection: collection, userID: userID, fields: copied})
	if f.updateErr != nil {
		return f.updateErr
	}
	if value, ok := fields[models.FieldDisplayPreferences]; ok {
		f.user.DisplayPreferences = &value
	}
	if value, ok := fields[models.FieldAccessibilitySettings]; ok {
		f.user.AccessibilitySettings = &value
	}
	return nil
}

func (f *fakeProfile) recordedUpdates() []fieldUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fieldUpdate(nil), f.updates...)
}

// failingLocal fails every call with err.
type failingLocal struct {
	err error
}

func (l failingLocal) Read(context.Context) (models.ThemeSettings, error) {
	return models.ThemeSettings{}, &models.PersistenceError{Target: models.TargetLocal, Op: "read settings", Err: l.err}
}

func (l failingLocal) Write(context.Context, models.ThemeSettings) error {
	return &models.PersistenceError{Target: models.TargetLocal, Op: "write settings", Err: l.err}
}

// gatedProfile blocks CurrentUser until release is closed.
type gatedProfile struct {
	*fakeProfile
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedProfile(inner *fakeProfile) *gatedProfile {
	return &gatedProfile{fakeProfile: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedProfile) CurrentUser(ctx context.Context) (*profile.User, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeProfile.CurrentUser(ctx)
}

type testEnv struct {
	db      *db.DB
	local   *store.Local
	subject *broadcast.Subject
	svc     *Service
}

func newTestEnv(t *testing.T, remote profile.Accessor, seed *models.ThemeSettings) *testEnv {
	t.Helper()

	database := testutil.NewTestDB(t)
	if seed != nil {
		testutil.SeedSettings(t, database, *seed)
	}
	local := store.NewLocal(database.Queries, zerolog.Nop())
	subject := broadcast.NewSubject()
	svc := NewService(Options{
		Local:     local,
		Remote:    remote,
		Broadcast: subject,
		Logger:    zerolog.Nop(),
	})
	svc.now = func() time.Time { return testNow }
	return &testEnv{db: database, local: local, subject: subject, svc: svc}
}

func (e *testEnv) stored(t *testing.T) models.ThemeSettings {
	t.Helper()
	got, err := e.local.Read(context.Background())
	if err != nil {
		t.Fatalf("local Read() error = %v", err)
	}
	return got
}

func strPtr(value string) *string {
	return &value
}

func settingsPtr(s models.ThemeSettings) *models.ThemeSettings {
	return &s
}

var errBoom = errors.New("boom")
