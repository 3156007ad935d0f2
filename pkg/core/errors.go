package core

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind int

const (
	// KindMissingArgument indicates a required argument was omitted.
	KindMissingArgument Kind = iota + 1

	// KindInvalidShape indicates a structural input has the wrong type or shape.
	KindInvalidShape

	// KindLengthMismatch indicates that parallel arrays disagree in length.
	KindLengthMismatch

	// KindOutOfBounds indicates an index outside the valid range.
	KindOutOfBounds

	// KindDuplicateIndex indicates that two references resolve to the same offset.
	KindDuplicateIndex

	// KindMissingAttribute indicates the target trace has no array at an update path.
	KindMissingAttribute

	// KindWindowShapeMismatch indicates a per-attribute maxPoints that does not
	// mirror the update object.
	KindWindowShapeMismatch

	// KindInvalidTarget indicates the graph document or its trace list is unusable.
	KindInvalidTarget
)

var kindNames = map[Kind]string{
	KindMissingArgument:     "MissingArgument",
	KindInvalidShape:        "InvalidShape",
	KindLengthMismatch:      "LengthMismatch",
	KindOutOfBounds:         "OutOfBounds",
	KindDuplicateIndex:      "DuplicateIndex",
	KindMissingAttribute:    "MissingAttribute",
	KindWindowShapeMismatch: "WindowShapeMismatch",
	KindInvalidTarget:       "InvalidTarget",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every operation that rejects its arguments.
// No mutation has happened when an Error is returned.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Msg
}

// Is reports whether target is a sentinel of the same kind, so that
// errors.Is(err, ErrOutOfBounds) matches any out-of-bounds failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Sentinels for errors.Is matching.
var (
	ErrMissingArgument     = &Error{Kind: KindMissingArgument}
	ErrInvalidShape        = &Error{Kind: KindInvalidShape}
	ErrLengthMismatch      = &Error{Kind: KindLengthMismatch}
	ErrOutOfBounds         = &Error{Kind: KindOutOfBounds}
	ErrDuplicateIndex      = &Error{Kind: KindDuplicateIndex}
	ErrMissingAttribute    = &Error{Kind: KindMissingAttribute}
	ErrWindowShapeMismatch = &Error{Kind: KindWindowShapeMismatch}
	ErrInvalidTarget       = &Error{Kind: KindInvalidTarget}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err when it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
