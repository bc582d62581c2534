// Package errors defines the sentinel errors shared by the ranking packages
// and a small wrapper that attaches a human-readable message to a sentinel.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNoSerializer     = errors.New("no serializer configured")
	ErrEmptyCorpus      = errors.New("empty corpus")
	ErrPartCount        = errors.New("part count mismatch")
	ErrUnknownStemmer   = errors.New("unknown stemmer")
	ErrUnknownTokenizer = errors.New("unknown tokenizer")
	ErrUnknownIDF       = errors.New("unknown idf function")
	ErrCorpusSource     = errors.New("corpus source failure")
)

// Error ties a sentinel to a message and, optionally, the lower-level
// error that caused it. errors.Is matches both Err and Cause.
type Error struct {
	Err     error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func New(sentinel error, message string) *Error {
	return &Error{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *Error {
	return &Error{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches cause to a sentinel error.
func Wrap(sentinel error, cause error, format string, args ...any) *Error {
	return &Error{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsConfigError reports whether err was caused by an unresolvable
// configuration name rather than by the corpus or a query.
func IsConfigError(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownStemmer),
		errors.Is(err, ErrUnknownTokenizer),
		errors.Is(err, ErrUnknownIDF),
		errors.Is(err, ErrNoSerializer):
		return true
	default:
		return false
	}
}
