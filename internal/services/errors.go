package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors shared across services. Handlers translate these into
// HTTP statuses; anything else is a 5xx.
var (
	// ErrNotFound means the document does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller does not own the document it tries to mutate.
	ErrForbidden = errors.New("forbidden")
)

// FieldErrors reports validation failures field-by-field, before any write is
// attempted.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
