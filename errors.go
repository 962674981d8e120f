package fullerene

import (
	"errors"
	"fmt"
)

// Kind classifies a fullerene error into the taxonomy consumers branch on.
// It is not a concrete error type itself; wrap it via NewError.
type Kind int

const (
	// Other covers underlying byte-sink failures: short writes, seeks out of
	// range, disk full, and anything else that is not one of the kinds below.
	Other Kind = iota
	// InvalidInput covers malformed destination paths, disallowed filename
	// characters, duplicate entries, path-table overflow, and an ESP size
	// below the legacy FAT minimum.
	InvalidInput
	// NotFound covers a source byte stream that cannot be opened.
	NotFound
	// InvalidData covers FAT formatting that produced an inconsistent volume.
	InvalidData
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case InvalidData:
		return "invalid_data"
	default:
		return "other"
	}
}

// Error is the single exported error type used to carry the taxonomy across
// every component. Callers branch on Kind via errors.As, not on message text.
type Error struct {
	Kind  Kind
	cause error
	msg   string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a *Error of the given kind, wrapping cause (which may be
// nil) and formatting msg/args as the description.
func NewError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: cause, msg: fmt.Sprintf(format, args...)}
}

// Is lets errors.Is(err, someKindError) compare by Kind rather than by
// pointer identity, so callers can test with a throwaway &Error{Kind: ...}.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}
