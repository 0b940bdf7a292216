// Package chartcore holds the typed-error taxonomy shared by the chart
// cache, opener pool, and renderer, so the HTTP collaborator can map a
// failure to a status code by asking Kind() instead of string-matching.
//
// Grounded on internal/parser/errors.go's one-struct-per-failure pattern,
// extended with a shared Kind() accessor and Op/Key context fields since
// these errors cross package and goroutine boundaries (parser's errors
// never leave a single parse call).
package chartcore

import "fmt"

// ErrorKind names a class of core failure. HTTP status mapping and retry
// policy are collaborator concerns; the core only classifies.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindFileMissing
	KindInvalidChart
	KindDecryptError
	KindMissingKey
	KindVersionMismatch
	KindLicenceExpired
	KindOpenerTimeout
	KindOpenerCrashed
	KindOutOfBudget
	KindBadConfig
	KindInterrupted
	KindBadRequest
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindFileMissing:
		return "FileMissing"
	case KindInvalidChart:
		return "InvalidChart"
	case KindDecryptError:
		return "DecryptError"
	case KindMissingKey:
		return "MissingKey"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindLicenceExpired:
		return "LicenceExpired"
	case KindOpenerTimeout:
		return "OpenerTimeout"
	case KindOpenerCrashed:
		return "OpenerCrashed"
	case KindOutOfBudget:
		return "OutOfBudget"
	case KindBadConfig:
		return "BadConfig"
	case KindInterrupted:
		return "Interrupted"
	case KindBadRequest:
		return "BadRequest"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a typed core failure. Op and Key identify where and on what the
// failure occurred (e.g. Op="chartcache.Acquire", Key="US5MA22M"); Err is
// the wrapped underlying cause, if any.
type Error struct {
	kind ErrorKind
	Op   string
	Key  string
	Err  error
}

// New constructs an Error of the given kind.
func New(kind ErrorKind, op, key string, err error) *Error {
	return &Error{kind: kind, Op: op, Key: key, Err: err}
}

// Kind returns the error's classification.
func (e *Error) Kind() ErrorKind { return e.kind }

func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.kind, e.Key, e.Err)
	case e.Key != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.kind, e.Key)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the ErrorKind from err if it (or something it wraps) is a
// *chartcore.Error, else returns KindUnknown.
func Kind(err error) ErrorKind {
	var ce *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			ce = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ce == nil {
		return KindUnknown
	}
	return ce.kind
}
