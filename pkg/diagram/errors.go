package diagram

import (
	"errors"
	"fmt"
)

// ReasonCode identifies why a validation query or geometry call failed.
// Codes are stable strings so hosts can map them to user-facing messages.
type ReasonCode string

const (
	ReasonNone              ReasonCode = ""
	ReasonPortNotFound      ReasonCode = "PORT_NOT_FOUND"
	ReasonNodeNotFound      ReasonCode = "NODE_NOT_FOUND"
	ReasonSelfLoop          ReasonCode = "SELF_LOOP"
	ReasonDirectionMismatch ReasonCode = "DIRECTION_MISMATCH"
	ReasonTypeMismatch      ReasonCode = "TYPE_MISMATCH"
	ReasonCapacityExceeded  ReasonCode = "CAPACITY_EXCEEDED"
	ReasonDuplicateEdge     ReasonCode = "DUPLICATE_EDGE"
	ReasonCycleDetected     ReasonCode = "CYCLE_DETECTED"
	ReasonInvalidGeometry   ReasonCode = "INVALID_GEOMETRY"
)

// Sentinel errors, one per reason code. A *ReasonError matches the sentinel
// of its code under errors.Is.
var (
	ErrPortNotFound      = errors.New("port not found")
	ErrNodeNotFound      = errors.New("node not found")
	ErrSelfLoop          = errors.New("self loop not allowed")
	ErrDirectionMismatch = errors.New("direction mismatch")
	ErrTypeMismatch      = errors.New("data type mismatch")
	ErrCapacityExceeded  = errors.New("port capacity exceeded")
	ErrDuplicateEdge     = errors.New("duplicate edge")
	ErrCycleDetected     = errors.New("cycle detected")
	ErrInvalidGeometry   = errors.New("invalid geometry")
)

var sentinels = map[ReasonCode]error{
	ReasonPortNotFound:      ErrPortNotFound,
	ReasonNodeNotFound:      ErrNodeNotFound,
	ReasonSelfLoop:          ErrSelfLoop,
	ReasonDirectionMismatch: ErrDirectionMismatch,
	ReasonTypeMismatch:      ErrTypeMismatch,
	ReasonCapacityExceeded:  ErrCapacityExceeded,
	ReasonDuplicateEdge:     ErrDuplicateEdge,
	ReasonCycleDetected:     ErrCycleDetected,
	ReasonInvalidGeometry:   ErrInvalidGeometry,
}

// Sentinel returns the sentinel error for a reason code, or nil.
func (c ReasonCode) Sentinel() error {
	return sentinels[c]
}

// ReasonError is a structured, recoverable failure carrying a reason code.
type ReasonError struct {
	Code    ReasonCode
	Message string
}

// NewReasonError builds a ReasonError with a formatted message.
func NewReasonError(code ReasonCode, format string, args ...any) *ReasonError {
	return &ReasonError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ReasonError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match both the sentinel and another ReasonError with the
// same code.
func (e *ReasonError) Is(target error) bool {
	if target == nil {
		return false
	}
	if s := e.Code.Sentinel(); s != nil && s == target {
		return true
	}
	var other *ReasonError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// ReasonOf extracts the reason code from err, or ReasonNone.
func ReasonOf(err error) ReasonCode {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Code
	}
	return ReasonNone
}
