package pfq

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured pfq error with operation context and
// errno mapping.
type Error struct {
	Op    string    // control op or API call that failed (e.g. "GROUP_JOIN", "Open")
	GID   int32     // group id (-1 if not applicable)
	Queue int32     // queue id (-1 if not applicable)
	Code  ErrorCode // high-level error category
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.GID >= 0 {
		parts = append(parts, fmt.Sprintf("gid=%d", e.GID))
	}
	if e.Queue >= 0 {
		parts = append(parts, fmt.Sprintf("queue=%d", e.Queue))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("pfq: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("pfq: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error code, including against the
// legacy PfqError string constants.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if pe, ok := target.(PfqError); ok {
		return e.Code == ErrorCode(pe)
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode is a stable, high-level error category.
type ErrorCode string

const (
	ErrCodeNotOpen          ErrorCode = "queue not open"
	ErrCodeAlreadyOpen      ErrorCode = "queue already open"
	ErrCodeAlreadyEnabled   ErrorCode = "queue already enabled"
	ErrCodeNotEnabled       ErrorCode = "queue not enabled"
	ErrCodeInvalidParams    ErrorCode = "invalid parameters"
	ErrCodeNoSuchGroup      ErrorCode = "no such group"
	ErrCodeGroupAccessDenied ErrorCode = "group access denied"
	ErrCodePermissionDenied ErrorCode = "permission denied"
	ErrCodeInsufficientMem  ErrorCode = "insufficient memory"
	ErrCodeIOError          ErrorCode = "I/O error"
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodeNoSuchDevice     ErrorCode = "no such network device"
	ErrCodeGeometryLocked   ErrorCode = "queue geometry cannot change while enabled"
)

// PfqError is a legacy string-typed error retained for comparisons against
// callers written before the structured Error type existed.
type PfqError string

func (e PfqError) Error() string { return string(e) }

const (
	ErrNotOpen       PfqError = "queue not open"
	ErrAlreadyOpen   PfqError = "queue already open"
	ErrNotEnabled    PfqError = "queue not enabled"
	ErrInvalidParams PfqError = "invalid parameters"
	ErrNoSuchGroup   PfqError = "no such group"
)

// NewError builds a structured Error with no device/group context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, GID: -1, Queue: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno builds a structured Error from a raw errno.
func NewErrorWithErrno(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, GID: -1, Queue: -1, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error()}
}

// NewGroupError builds a structured Error scoped to a group id.
func NewGroupError(op string, gid int32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, GID: gid, Queue: -1, Code: code, Msg: msg}
}

// WrapError attaches op to inner, preserving structured context and
// mapping raw syscall errnos to an ErrorCode.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if pe, ok := inner.(*Error); ok {
		return &Error{Op: op, GID: pe.GID, Queue: pe.Queue, Code: pe.Code, Errno: pe.Errno, Msg: pe.Msg, Inner: pe.Inner}
	}
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{Op: op, GID: -1, Queue: -1, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, GID: -1, Queue: -1, Code: ErrCodeIOError, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENODEV, syscall.ENXIO:
		return ErrCodeNoSuchDevice
	case syscall.ENOENT:
		return ErrCodeNoSuchGroup
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParams
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOMEM, syscall.ENOSPC:
		return ErrCodeInsufficientMem
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	case syscall.EBUSY:
		return ErrCodeAlreadyEnabled
	default:
		return ErrCodeIOError
	}
}

// IsCode reports whether err's structured error code equals code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsErrno reports whether err's structured errno equals errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Errno == errno
	}
	return false
}
