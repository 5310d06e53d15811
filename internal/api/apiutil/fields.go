package apiutil

import (
	"strconv"
	"strings"
)

func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// ParseOptionalStringField returns nil for a blank value.
func ParseOptionalStringField(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// ParseOptionalBoolField accepts the values HTML checkboxes and toggles send.
// A blank value is nil.
func ParseOptionalBoolField(raw string, field string) (*bool, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return nil, nil
	case "on", "yes":
		value := true
		return &value, nil
	case "off", "no":
		value := false
		return &value, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, FieldError{Field: field, Reason: "must be true or false"}
	}
	return &value, nil
}
