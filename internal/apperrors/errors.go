package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConflict is returned when a register request collides with an
	// existing username or email.
	ErrConflict = errors.New("username or email already registered")

	// ErrUnauthorized covers bad credentials and invalid, expired or
	// already-rotated refresh tokens. The shape is deliberately identical
	// for all of those so callers cannot probe which check failed.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrNotFound is the domain-level miss for lookups (user, token record).
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable signals a persistence fault. Handlers map it to a
	// 5xx status; it must never be collapsed into ErrUnauthorized.
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
	}
	return b.String()
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
