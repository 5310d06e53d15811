package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Remote profile field names.
const (
	FieldDisplayPreferences    = "display_preferences"
	FieldAccessibilitySettings = "accessibility_settings"
)

// PayloadVersion is written into every payload this package encodes.
// Payloads without a version key decode as version 0.
const PayloadVersion = 1

// DisplayPreferences is the decoded form of the display_preferences field.
// Pointer fields are nil when the key is absent. Invalid records which keys
// were present but unusable so callers can decide whether to rewrite.
type DisplayPreferences struct {
	Version  int
	Theme    *string
	FontSize *string
	Invalid  []string
	// Extra keeps unknown keys so a partial rewrite can preserve them.
	Extra map[string]json.RawMessage
}

type AccessibilitySettings struct {
	Version        int
	ColorBlindMode *bool
	ReducedMotion  *bool
	Invalid        []string
	Extra          map[string]json.RawMessage
}

type displayPayload struct {
	Version  int      `json:"version"`
	Theme    Theme    `json:"theme"`
	FontSize FontSize `json:"fontSize"`
}

type accessibilityPayload struct {
	Version        int  `json:"version"`
	ColorBlindMode bool `json:"colorBlindMode"`
	ReducedMotion  bool `json:"reducedMotion"`
}

func EncodeDisplayPreferences(theme Theme, fontSize FontSize) string {
	return mustEncode(displayPayload{Version: PayloadVersion, Theme: theme, FontSize: fontSize})
}

func EncodeAccessibilitySettings(colorBlindMode, reducedMotion bool) string {
	return mustEncode(accessibilityPayload{
		Version:        PayloadVersion,
		ColorBlindMode: colorBlindMode,
		ReducedMotion:  reducedMotion,
	})
}

// MergeDisplayTheme returns raw with its theme replaced, keeping every other
// key and adding none. When raw cannot be decoded the result is a fresh
// payload with the medium font size.
func MergeDisplayTheme(raw *string, theme Theme) string {
	if raw == nil {
		return EncodeDisplayPreferences(theme, FontSizeMedium)
	}
	fields, err := decodeObject(FieldDisplayPreferences, *raw)
	if err != nil {
		return EncodeDisplayPreferences(theme, FontSizeMedium)
	}
	encodedTheme, _ := json.Marshal(theme)
	fields["theme"] = encodedTheme
	return mustEncode(fields)
}

func ParseDisplayPreferences(raw *string) (DisplayPreferences, error) {
	var prefs DisplayPreferences
	if raw == nil {
		return prefs, &ParseError{Field: FieldDisplayPreferences, Reason: "missing"}
	}
	fields, err := decodeObject(FieldDisplayPreferences, *raw)
	if err != nil {
		return prefs, err
	}
	if prefs.Version, err = decodeVersion(FieldDisplayPreferences, fields); err != nil {
		return prefs, err
	}

	for key, value := range fields {
		switch key {
		case "version":
		case "theme", "fontSize":
			text, ok := decodeString(value)
			if !ok {
				prefs.Invalid = append(prefs.Invalid, key)
				continue
			}
			if text == "" {
				continue
			}
			if key == "theme" {
				prefs.Theme = &text
			} else {
				prefs.FontSize = &text
			}
		default:
			if prefs.Extra == nil {
				prefs.Extra = make(map[string]json.RawMessage)
			}
			prefs.Extra[key] = value
		}
	}
	return prefs, nil
}

func ParseAccessibilitySettings(raw *string) (AccessibilitySettings, error) {
	var settings AccessibilitySettings
	if raw == nil {
		return settings, &ParseError{Field: FieldAccessibilitySettings, Reason: "missing"}
	}
	fields, err := decodeObject(FieldAccessibilitySettings, *raw)
	if err != nil {
		return settings, err
	}
	if settings.Version, err = decodeVersion(FieldAccessibilitySettings, fields); err != nil {
		return settings, err
	}

	for key, value := range fields {
		switch key {
		case "version":
		case "colorBlindMode", "reducedMotion":
			flag, ok := decodeStrictBool(value)
			if !ok {
				settings.Invalid = append(settings.Invalid, key)
				continue
			}
			if key == "colorBlindMode" {
				settings.ColorBlindMode = &flag
			} else {
				settings.ReducedMotion = &flag
			}
		default:
			if settings.Extra == nil {
				settings.Extra = make(map[string]json.RawMessage)
			}
			settings.Extra[key] = value
		}
	}
	return settings, nil
}

func decodeObject(field, raw string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Field: field, Reason: "blank"}
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, &ParseError{Field: field, Reason: "not a JSON object"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, &ParseError{Field: field, Reason: "invalid JSON", Err: err}
	}
	return fields, nil
}

func decodeVersion(field string, fields map[string]json.RawMessage) (int, error) {
	value, ok := fields["version"]
	if !ok {
		return 0, nil
	}
	var version int
	if err := json.Unmarshal(value, &version); err != nil {
		return 0, &ParseError{Field: field, Reason: "version is not an integer", Err: err}
	}
	if version != 0 && version != PayloadVersion {
		return 0, &ParseError{Field: field, Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	return version, nil
}

// decodeString rejects null and every non-string JSON value.
func decodeString(value json.RawMessage) (string, bool) {
	if string(bytes.TrimSpace(value)) == "null" {
		return "", false
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", false
	}
	return text, true
}

// decodeStrictBool accepts only the JSON literals true and false.
func decodeStrictBool(value json.RawMessage) (bool, bool) {
	switch string(bytes.TrimSpace(value)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func mustEncode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("encode preference payload: %v", err))
	}
	return string(data)
}
