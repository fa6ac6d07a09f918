package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers at the engine boundary can report it
// without inspecting message text.
type Kind int

const (
	KindNotFound Kind = iota
	KindAlreadyExists
	KindSchemaMismatch
	KindTypeError
	KindColumnError
	KindConditionSyntax
	KindInvalidGrouping
	KindUnsupportedQuery
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindTypeError:
		return "TypeError"
	case KindColumnError:
		return "ColumnError"
	case KindConditionSyntax:
		return "ConditionSyntaxError"
	case KindInvalidGrouping:
		return "InvalidGrouping"
	case KindUnsupportedQuery:
		return "UnsupportedQuery"
	case KindIO:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Sentinels, one per kind, usable with errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrAlreadyExists    = &Error{Kind: KindAlreadyExists}
	ErrSchemaMismatch   = &Error{Kind: KindSchemaMismatch}
	ErrTypeError        = &Error{Kind: KindTypeError}
	ErrColumnError      = &Error{Kind: KindColumnError}
	ErrConditionSyntax  = &Error{Kind: KindConditionSyntax}
	ErrInvalidGrouping  = &Error{Kind: KindInvalidGrouping}
	ErrUnsupportedQuery = &Error{Kind: KindUnsupportedQuery}
	ErrIO               = &Error{Kind: KindIO}
)

type Error struct {
	Kind  Kind
	Stage string // which component raised it, ie parse, store, join ...
	Msg   string
	Err   error // underlying cause, if any
}

func (self *Error) Error() string {
	msg := self.Msg
	if msg == "" {
		msg = self.Kind.String()
	}
	if self.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, self.Err)
	}
	if self.Stage == "" {
		return msg
	}
	return fmt.Sprintf("stage(%s): %s", self.Stage, msg)
}

func (self *Error) Unwrap() error { return self.Err }

// Two errors match when they share the same kind, so errors.Is(err,
// ErrNotFound) works for any not found error regardless of its message.
func (self *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == self.Kind
}

func New(kind Kind, stage string, f string, args ...interface{}) error {
	return &Error{
		Kind:  kind,
		Stage: stage,
		Msg:   fmt.Sprintf(f, args...),
	}
}

func Wrap(kind Kind, stage string, err error, f string, args ...interface{}) error {
	return &Error{
		Kind:  kind,
		Stage: stage,
		Msg:   fmt.Sprintf(f, args...),
		Err:   err,
	}
}

// KindOf returns the kind of the first *Error in err's chain. The second
// return value is false when err carries no kind at all.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
