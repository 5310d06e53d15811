package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type fakeProfileService struct {
	mu      sync.Mutex
	records map[string]map[string]any
	patches []map[string]string
	status  int
	authz   []string
}

func newFakeProfileService() *fakeProfileService {
	return &fakeProfileService{records: make(map[string]map[string]any)}
}

func (f *fakeProfileService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authz = append(f.authz, r.Header.Get("Authorization"))
	if f.status != 0 {
		http.Error(w, `{"message":"forced failure"}`, f.status)
		return
	}

	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		record, ok := f.records[id]
		if !ok {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
	case http.MethodPatch:
		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.patches = append(f.patches, fields)
		record := f.records[id]
		if record == nil {
			record = map[string]any{"id": id}
			f.records[id] = record
		}
		for key, value := range fields {
			record[key] = value
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeProfileService) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authz...)
}

func (f *fakeProfileService) patched() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.patches...)
}

func newTestClient(t *testing.T, service *fakeProfileService, userID string) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("/api/collections/users/records/{id}", service)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	auth := NewAuthStore()
	if userID != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID}).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		if err := auth.Save(token); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	client, err := NewClient(ClientConfig{
		BaseURL:         server.URL,
		Timeout:         2 * time.Second,
		BreakerFailures: 2,
		BreakerDelay:    time.Minute,
		Logger:          zerolog.Nop(),
	}, auth)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestCurrentUserSignedOut(t *testing.T) {
	service := newFakeProfileService()
	client := newTestClient(t, service, "")

	user, err := client.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Fatalf("CurrentUser() = %+v, %v, want nil, nil", user, err)
	}
	if len(service.requests()) != 0 {
		t.Fatalf("signed-out CurrentUser contacted the service %d times", len(service.requests()))
	}
}

func TestCurrentUserDecodesFields(t *testing.T) {
	service := newFakeProfileService()
	service.records["u_1"] = map[string]any{
		"id":                     "u_1",
		"display_preferences":    `{"theme":"light","fontSize":"large"}`,
		"accessibility_settings": map[string]any{"colorBlindMode": true, "reducedMotion": false},
	}
	client := newTestClient(t, service, "u_1")

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user == nil || user.ID != "u_1" {
		t.Fatalf("CurrentUser() = %+v", user)
	}
	if user.DisplayPreferences == nil || *user.DisplayPreferences != `{"theme":"light","fontSize":"large"}` {
		t.Fatalf("display_preferences = %v", user.DisplayPreferences)
	}
	if user.AccessibilitySettings == nil || *user.AccessibilitySettings != `{"colorBlindMode":true,"reducedMotion":false}` {
		t.Fatalf("accessibility_settings = %v", user.AccessibilitySettings)
	}
	if service.requests()[0] == "" {
		t.Fatalf("request sent without Authorization header")
	}
}

func TestCurrentUserAbsentFields(t *testing.T) {
	service := newFakeProfileService()
	service.records["u_2"] = map[string]any{"id": "u_2", "display_preferences": nil}
	client := newTestClient(t, service, "u_2")

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.DisplayPreferences != nil || user.AccessibilitySettings != nil {
		t.Fatalf("CurrentUser() fields = %v, %v, want both absent", user.DisplayPreferences, user.AccessibilitySettings)
	}
}

func TestCurrentUserUnauthorizedMeansNoUser(t *testing.T) {
	service := newFakeProfileService()
	service.status = http.StatusUnauthorized
	client := newTestClient(t, service, "u_3")

	user, err := client.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Fatalf("CurrentUser() = %+v, %v, want nil, nil", user, err)
	}
}

func TestUpdateFields(t *testing.T) {
	service := newFakeProfileService()
	client := newTestClient(t, service, "u_4")

	fields := map[string]string{"display_preferences": `{"version":1,"theme":"dark","fontSize":"small"}`}
	if err := client.UpdateFields(context.Background(), "users", "u_4", fields); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	patches := service.patched()
	if len(patches) != 1 || patches[0]["display_preferences"] != fields["display_preferences"] {
		t.Fatalf("patches = %+v", patches)
	}
}

func TestUpdateFieldsStatusError(t *testing.T) {
	service := newFakeProfileService()
	service.status = http.StatusBadRequest
	client := newTestClient(t, service, "u_5")

	err := client.UpdateFields(context.Background(), "users", "u_5", map[string]string{"display_preferences": "{}"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("UpdateFields() error = %v, want 400 StatusError", err)
	}
}

func TestCircuitBreakerOpensWithoutRetrying(t *testing.T) {
	service := newFakeProfileService()
	service.status = http.StatusServiceUnavailable
	client := newTestClient(t, service, "u_6")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := client.UpdateFields(ctx, "users", "u_6", map[string]string{"x": "y"}); err == nil {
			t.Fatalf("UpdateFields() #%d error = nil, want 503", i+1)
		}
	}
	if len(service.requests()) != 2 {
		t.Fatalf("service saw %d requests, want 2 (no retries)", len(service.requests()))
	}

	err := client.UpdateFields(ctx, "users", "u_6", map[string]string{"x": "y"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("UpdateFields() with open breaker error = %v, want ErrUnavailable", err)
	}
	if len(service.requests()) != 2 {
		t.Fatalf("open breaker still reached the service")
	}
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{BaseURL: "profiles.local"}, nil); err == nil {
		t.Fatalf("NewClient(relative) error = nil")
	}
}

func TestOfflineAccessor(t *testing.T) {
	var accessor Accessor = Offline{}
	user, err := accessor.CurrentUser(context.Background())
	if user != nil || err != nil {
		t.Fatalf("Offline.CurrentUser() = %+v, %v", user, err)
	}
	if err := accessor.UpdateFields(context.Background(), "users", "u", nil); err == nil {
		t.Fatalf("Offline.UpdateFields() error = nil")
	}
}
