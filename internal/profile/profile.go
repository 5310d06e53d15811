// Package profile reads and writes the signed-in user's profile record on the
// remote profile service.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// User is the subset of the remote user record this system reads.
// A nil field pointer means the field is absent on the record.
type User struct {
	ID                    string  `json:"id"`
	DisplayPreferences    *string `json:"display_preferences,omitempty"`
	AccessibilitySettings *string `json:"accessibility_settings,omitempty"`
}

// UnmarshalJSON accepts the preference fields either as text or as raw JSON
// values, since profile services differ in how they type them. null is absent.
func (u *User) UnmarshalJSON(data []byte) error {
	var record struct {
		ID                    string          `json:"id"`
		DisplayPreferences    json.RawMessage `json:"display_preferences"`
		AccessibilitySettings json.RawMessage `json:"accessibility_settings"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	u.ID = record.ID
	u.DisplayPreferences = textField(record.DisplayPreferences)
	u.AccessibilitySettings = textField(record.AccessibilitySettings)
	return nil
}

func textField(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	var text string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return &text
		}
	}
	text = string(trimmed)
	return &text
}

// Accessor is the settings-read/settings-write contract with the profile service.
type Accessor interface {
	// CurrentUser returns nil, nil when nobody is signed in.
	CurrentUser(ctx context.Context) (*User, error)
	UpdateFields(ctx context.Context, collection, userID string, fields map[string]string) error
}

// StatusError is a non-2xx answer from the profile service.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Offline is the Accessor used when no profile service is configured.
type Offline struct{}

func (Offline) CurrentUser(context.Context) (*User, error) {
	return nil, nil
}

func (Offline) UpdateFields(context.Context, string, string, map[string]string) error {
	return fmt.Errorf("profile service not configured")
}
