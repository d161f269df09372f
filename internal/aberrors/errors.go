// Package aberrors implements the error taxonomy used throughout abtool:
// a small set of categories, each carrying a human-readable description
// that can be elaborated with additional context as the error propagates
// up through the pipeline.
package aberrors

import "fmt"

// Kind identifies the category of a Error, mirroring spec.md §7.
type Kind int

const (
	// KindUnknown is the zero value and should never be used directly.
	KindUnknown Kind = iota
	KindInputMissing
	KindOutputExists
	KindBadHeader
	KindUnsupportedVersion
	KindUnsupportedCompression
	KindUnsupportedEncryption
	KindPassphraseMissing
	KindDecryptionFailed
	KindTarParseError
	KindVersionMismatch
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindInputMissing:
		return "InputMissing"
	case KindOutputExists:
		return "OutputExists"
	case KindBadHeader:
		return "BadHeader"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindUnsupportedCompression:
		return "UnsupportedCompression"
	case KindUnsupportedEncryption:
		return "UnsupportedEncryption"
	case KindPassphraseMissing:
		return "PassphraseMissing"
	case KindDecryptionFailed:
		return "DecryptionFailed"
	case KindTarParseError:
		return "TarParseError"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Error is a categorical, elaboratable error. It is fatal for the
// operation that raised it: callers propagate it to the process
// boundary and never retry.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind that also carries an
// underlying cause for Unwrap/errors.Is/errors.As support.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Elaborate prepends context to the error's description, matching the
// behavior of the reference implementation's CatastrophicFailure.elaborate:
// new context comes first, then a colon, then the existing message.
func (e *Error) Elaborate(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...) + ": " + e.Message
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
