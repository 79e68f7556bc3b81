package airc

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
// Error() strings are human-readable and may evolve; use errors.As to
// extract *Error for structured handling.
type Kind string

const (
	// KindNotInitialized: an operation that needs a loaded keypair was
	// called before EnsureKeypair succeeded.
	KindNotInitialized Kind = "NotInitialized"
	// KindNotFound: no key artifact exists at the expected path.
	KindNotFound Kind = "NotFound"
	// KindCorruptKey: a key artifact exists but does not parse or validate
	// as the expected private key encoding.
	KindCorruptKey Kind = "CorruptKey"
	// KindEncoding: a payload contains a value the canonical encoder cannot
	// represent deterministically.
	KindEncoding Kind = "Encoding"
	// KindPermission: the filesystem refused to apply or honor the required
	// access restrictions.
	KindPermission Kind = "Permission"
)

// Error is the SDK's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error with the given kind.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError attaches a kind and message to an underlying cause.
func WrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
