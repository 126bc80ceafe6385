package payments

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel outcomes of the store facade. Anything else coming out of a facade
// operation is a storage-level failure.
var (
	// ErrDuplicate is returned when a payment with the same
	// (reference, category, amount) already exists.
	ErrDuplicate = errors.New("payment already exists")
	// ErrNotFound is returned when the target payment id does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrConflict is returned when an edit carries a stale version because
	// another writer modified the payment in between.
	ErrConflict = errors.New("payment was modified by another writer")
)

// ValidationError carries per-field violation messages. It is only ever
// returned with at least one field set.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
