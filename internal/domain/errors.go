package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidArgument is returned by the budget math when nights or travelers are below 1.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrItemNotFound  = errors.New("planned item not found")
	ErrItemConfirmed = errors.New("planned item is confirmed")
)

// ValidationError reports rejected input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns nil when nothing was recorded so callers can return it directly.
func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
