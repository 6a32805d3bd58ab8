package spec

import "fmt"

// Error codes for specification failures. A specification error is always
// fatal: it aborts the run before any backend executes.
const (
	ErrCodeRead             = "SPEC_READ"
	ErrCodeParse            = "SPEC_PARSE"
	ErrCodeSchema           = "SPEC_SCHEMA"
	ErrCodeMissingField     = "SPEC_MISSING_FIELD"
	ErrCodeBadEntry         = "SPEC_BAD_ENTRY"
	ErrCodeBadRepeat        = "SPEC_BAD_REPEAT"
	ErrCodeUnknownVariation = "SPEC_UNKNOWN_VARIATION"
	ErrCodeUnknownCheck     = "SPEC_UNKNOWN_CHECK"
)

// Error is a malformed-specification error.
type Error struct {
	Code    string
	Message string
	Path    string // spec file path, when known
	Err     error  // underlying error, optional
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
