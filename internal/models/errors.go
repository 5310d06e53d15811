package models

import (
	"errors"
	"fmt"
)

var ErrAuthenticationRequired = errors.New("authentication required")

// ParseError reports preference text that could not be decoded.
type ParseError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed read or write against the local or remote store.
type PersistenceError struct {
	Target string
	Op     string
	Err    error
}

const (
	TargetLocal  = "local"
	TargetRemote = "remote"
)

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Target, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field string
	Value string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s has invalid value %q", e.Field, e.Value)
}
