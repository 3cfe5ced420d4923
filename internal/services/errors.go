package services

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports payload fields that broke a rule
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ReferentialError reports a reference to a record that does not exist
type ReferentialError struct {
	Field string
	ID    string
}

func (e *ReferentialError) Error() string {
	return e.Field + " not found"
}

// NotFoundError reports that the addressed record does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}
