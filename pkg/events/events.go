// Package events defines the connection-lifecycle events the engine emits to
// its host and the bus that delivers them.
package events

import (
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// Kind names an event.
type Kind string

const (
	ConnectionCreateRequested Kind = "connection-create-requested"
	ConnectionCreated         Kind = "connection-created"
	ConnectionRejected        Kind = "connection-rejected"
	ConnectionUpdated         Kind = "connection-updated"
	ConnectionDeleted         Kind = "connection-deleted"

	DragSessionStarted   Kind = "drag-session-started"
	DragSessionUpdated   Kind = "drag-session-updated"
	DragSessionCancelled Kind = "drag-session-cancelled"
	DragSessionCompleted Kind = "drag-session-completed"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{
	ConnectionCreateRequested,
	ConnectionCreated,
	ConnectionRejected,
	ConnectionUpdated,
	ConnectionDeleted,
	DragSessionStarted,
	DragSessionUpdated,
	DragSessionCancelled,
	DragSessionCompleted,
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Drag is the session part of drag-session-* events.
type Drag struct {
	State           string             `json:"state"`
	OriginPortID    string             `json:"originPortId"`
	Pointer         diagram.Point      `json:"pointer"`
	CandidatePortID string             `json:"candidatePortId,omitempty"`
	CandidateValid  bool               `json:"candidateValid,omitempty"`
	CandidateReason diagram.ReasonCode `json:"candidateReason,omitempty"`
	CancelReason    string             `json:"cancelReason,omitempty"`
}

// Event is one entry in the lifecycle stream. Seq and Time are stamped by
// the bus.
type Event struct {
	Seq  uint64    `json:"seq"`
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`

	ConnectionID string `json:"connectionId,omitempty"`
	SourcePortID string `json:"sourcePortId,omitempty"`
	TargetPortID string `json:"targetPortId,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`
	PortID       string `json:"portId,omitempty"`

	// Connection is a copy of the connection after the change (before it,
	// for deletions).
	Connection *diagram.Connection `json:"connection,omitempty"`
	Drag       *Drag               `json:"drag,omitempty"`

	Reason  diagram.ReasonCode `json:"reason,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Emitter accepts events. Emit returns the event as stamped.
type Emitter interface {
	Emit(e Event) Event
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(e Event) Event { return e }
