package grid

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is the single error type reported by the stamping core.
//
// Every failure the core can report is recoverable: the attempted mutation
// is rejected in full and the engine stays usable. Code identifies the
// category; Details carries structured context (layer, index, entity id)
// for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes core errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown layer name or entity id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeOutOfBounds indicates a grid index outside [0, W*H).
	ErrCodeOutOfBounds ErrorCode = "OUT_OF_BOUNDS"

	// ErrCodeAlreadyExists indicates a duplicate layer name or binding target.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeOccupied indicates an anchor already claimed by a live entity.
	ErrCodeOccupied ErrorCode = "OCCUPIED"

	// ErrCodeInvalidRadius indicates a radius below 1 or above the maximum.
	ErrCodeInvalidRadius ErrorCode = "INVALID_RADIUS"

	// ErrCodeInvalidSize indicates non-positive grid dimensions.
	ErrCodeInvalidSize ErrorCode = "INVALID_SIZE"

	// ErrCodeInvalidCurve indicates a malformed or non-monotonic falloff curve.
	ErrCodeInvalidCurve ErrorCode = "INVALID_CURVE"

	// ErrCodeCycle indicates derived-layer bindings that feed back into themselves.
	ErrCodeCycle ErrorCode = "CYCLE_DETECTED"

	// ErrCodeInvalidName indicates an empty layer, kind or binding name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeDerivedTarget indicates a direct write to a layer that a
	// binding recomputes.
	ErrCodeDerivedTarget ErrorCode = "DERIVED_TARGET"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrNotFound      = &Error{Code: ErrCodeNotFound}
	ErrOutOfBounds   = &Error{Code: ErrCodeOutOfBounds}
	ErrAlreadyExists = &Error{Code: ErrCodeAlreadyExists}
	ErrOccupied      = &Error{Code: ErrCodeOccupied}
	ErrInvalidRadius = &Error{Code: ErrCodeInvalidRadius}
	ErrInvalidSize   = &Error{Code: ErrCodeInvalidSize}
	ErrInvalidCurve  = &Error{Code: ErrCodeInvalidCurve}
	ErrCycle         = &Error{Code: ErrCodeCycle}
	ErrInvalidName   = &Error{Code: ErrCodeInvalidName}
	ErrDerivedTarget = &Error{Code: ErrCodeDerivedTarget}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Code), "_", " "))
	}
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Details[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, msg, strings.Join(parts, ", "))
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates an Error with the given code and formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of e with an extra detail attached.
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// CodeOf extracts the error code from err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsNotFound returns true if the error is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsOutOfBounds returns true if the error is an OUT_OF_BOUNDS error.
func IsOutOfBounds(err error) bool { return CodeOf(err) == ErrCodeOutOfBounds }

// IsAlreadyExists returns true if the error is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return CodeOf(err) == ErrCodeAlreadyExists }

// IsOccupied returns true if the error is an OCCUPIED error.
func IsOccupied(err error) bool { return CodeOf(err) == ErrCodeOccupied }

// IsInvalidRadius returns true if the error is an INVALID_RADIUS error.
func IsInvalidRadius(err error) bool { return CodeOf(err) == ErrCodeInvalidRadius }

// IsInvalidName returns true if the error is an INVALID_NAME error.
func IsInvalidName(err error) bool { return CodeOf(err) == ErrCodeInvalidName }

// IsDerivedTarget returns true if the error is a DERIVED_TARGET error.
func IsDerivedTarget(err error) bool { return CodeOf(err) == ErrCodeDerivedTarget }
