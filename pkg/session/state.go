package session

import (
	"errors"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// State is the top-level phase of a drag gesture. Completed and Cancelled are
// transient: they appear on the terminal event and the session is back in
// Idle by the time the call returns.
type State string

const (
	StateIdle      State = "idle"
	StateDragging  State = "dragging"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// SubState refines Dragging.
type SubState string

const (
	SubStateNone      SubState = ""
	SubStateUnsnapped SubState = "unsnapped"
	SubStateSnapped   SubState = "snapped"
)

// CancelReason says why a drag ended without a connection.
type CancelReason string

const (
	CancelExplicit         CancelReason = "explicit"
	CancelInvalidTarget    CancelReason = "invalid-target"
	CancelBlur             CancelReason = "blur"
	CancelVisibilityHidden CancelReason = "visibility-hidden"
	CancelCaptureLost      CancelReason = "capture-lost"
	CancelEntityRemoved    CancelReason = "entity-removed"
	CancelRejected         CancelReason = "rejected"
)

// OutcomeCompleted is the metrics outcome for a drag that produced a
// connection request. Cancelled drags use their CancelReason.
const OutcomeCompleted = "completed"

var (
	// ErrSessionActive is returned by Start while a drag is in progress.
	ErrSessionActive = errors.New("drag session already active")
	// ErrNotDragging is returned by operations that need a live drag.
	ErrNotDragging = errors.New("no drag session in progress")
	// ErrCancelled is returned by Complete when the drag ended without a
	// connection.
	ErrCancelled = errors.New("drag session cancelled")
)

// Snapshot is a copy of the session's ephemeral state.
type Snapshot struct {
	State           State              `json:"state"`
	SubState        SubState           `json:"subState,omitempty"`
	OriginPortID    string             `json:"originPortId,omitempty"`
	Origin          diagram.Point      `json:"origin"`
	Pointer         diagram.Point      `json:"pointer"`
	CandidatePortID string             `json:"candidatePortId,omitempty"`
	CandidatePoint  diagram.Point      `json:"candidatePoint"`
	CandidateValid  bool               `json:"candidateValid,omitempty"`
	CandidateReason diagram.ReasonCode `json:"candidateReason,omitempty"`
}

// Phase renders state and sub-state as one label, e.g. "dragging/snapped".
func (s Snapshot) Phase() string {
	if s.SubState == SubStateNone {
		return string(s.State)
	}
	return string(s.State) + "/" + string(s.SubState)
}

// IsSnapped reports whether the pointer is over a candidate port.
func (s Snapshot) IsSnapped() bool {
	return s.State == StateDragging && s.SubState == SubStateSnapped
}
