package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the coarse classification of a domain error
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// Stable reason codes carried by *Error
const (
	CodeBlankStationName      = "blank_station_name"
	CodeBlankLineName         = "blank_line_name"
	CodeNonPositiveDistance   = "non_positive_distance"
	CodeDistanceTooLong       = "distance_too_long"
	CodeSameStation           = "same_station"
	CodeSplitTooLong          = "split_too_long"
	CodeStationsAlreadyLinked = "stations_already_linked"
	CodeBrokenPath            = "broken_path"
	CodeStationNotFound       = "station_not_found"
	CodeSegmentNotFound       = "segment_not_found"
	CodeLineNotFound          = "line_not_found"
	CodeDuplicateLineName     = "duplicate_line_name"
	CodeDuplicateStationName  = "duplicate_station_name"
	CodeStaleRevision         = "stale_revision"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
)

// Error is a domain failure with a machine-checkable reason code and a
// display message. Operations that return one have not changed any state.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinels by kind, and other *Error values by kind and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewValidationError builds a validation failure
func NewValidationError(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError builds a not-found failure
func NewNotFoundError(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError builds a conflict failure
func NewConflictError(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err wraps a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// CodeOf returns the reason code of a wrapped domain error, or "" if there is none
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
