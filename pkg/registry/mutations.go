package registry

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/validation"
)

// CreateOption sets optional fields on a new connection.
type CreateOption func(*diagram.Connection)

// WithLabel sets the label.
func WithLabel(label string) CreateOption {
	return func(c *diagram.Connection) { c.Label = label }
}

// WithCondition sets the condition text.
func WithCondition(cond string) CreateOption {
	return func(c *diagram.Connection) { c.Condition = cond }
}

// WithStyle overrides the registry's default style.
func WithStyle(s diagram.Style) CreateOption {
	return func(c *diagram.Connection) { c.Style = s }
}

// Create validates p and, if it passes, stores a new idle connection with a
// fresh id. On rejection the state is untouched and the returned connection
// is nil.
func (r *Registry) Create(p diagram.Proposal, opts ...CreateOption) (*diagram.Connection, *constraints.Result) {
	timer := logging.StartTimer(r.logger, "create connection",
		logging.PortID(p.SourcePortID), logging.String("target_port_id", p.TargetPortID))

	res := r.checkCreate(p, opts)
	if !res.Valid {
		elapsed := timer.End(logging.Reason(res.Reason))
		r.metrics.RecordRegistryOperation("create", metrics.StatusRejected, elapsed)
		r.metrics.RecordRejection(string(res.Reason))
		r.emitter.Emit(events.Event{
			Kind:         events.ConnectionRejected,
			SourcePortID: p.SourcePortID,
			TargetPortID: p.TargetPortID,
			Reason:       res.Reason,
			Message:      res.Message,
		})
		return nil, res
	}

	now := r.now()
	conn := &diagram.Connection{
		ID:           r.nextID(),
		SourcePortID: p.SourcePortID,
		TargetPortID: p.TargetPortID,
		Status:       diagram.StatusIdle,
		Style:        r.defaultStyle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(conn)
	}
	conn.Style = conn.Style.OrDefault()

	src, _ := r.layout.Port(p.SourcePortID)
	dst, _ := r.layout.Port(p.TargetPortID)
	r.seq++
	rec := &record{conn: conn, seq: r.seq, sourceNode: src.NodeID, targetNode: dst.NodeID}
	r.records[conn.ID] = rec
	r.index(rec)

	elapsed := timer.End(logging.ConnectionID(conn.ID))
	r.metrics.RecordRegistryOperation("create", metrics.StatusSuccess, elapsed)
	r.metrics.SetConnections(len(r.records))
	r.logger.Info("connection created",
		logging.ConnectionID(conn.ID), logging.PortID(conn.SourcePortID),
		logging.String("target_port_id", conn.TargetPortID))

	out := conn.Clone()
	r.emitter.Emit(events.Event{
		Kind:         events.ConnectionCreated,
		ConnectionID: conn.ID,
		SourcePortID: conn.SourcePortID,
		TargetPortID: conn.TargetPortID,
		Connection:   conn.Clone(),
	})
	return out, res
}

func (r *Registry) checkCreate(p diagram.Proposal, opts []CreateOption) *constraints.Result {
	if err := validation.ValidateProposal(p); err != nil {
		return &constraints.Result{Reason: diagram.ReasonPortNotFound, Message: err.Error(), Constraint: "Input"}
	}
	var probe diagram.Connection
	for _, opt := range opts {
		opt(&probe)
	}
	if !probe.Style.IsValid() {
		return &constraints.Result{
			Reason:     diagram.ReasonInvalidGeometry,
			Message:    fmt.Sprintf("unknown connection style %q", probe.Style),
			Constraint: "Input",
		}
	}
	return r.validator.Validate(r, p)
}

// Patch carries the mutable fields of a connection; nil fields are left
// unchanged. Endpoints cannot be patched: re-pointing an edge is a delete
// followed by a create.
type Patch struct {
	Label     *string
	Condition *string
	Status    *diagram.Status
	Style     *diagram.Style
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Label == nil && p.Condition == nil && p.Status == nil && p.Style == nil
}

func (p Patch) request() *validation.PatchRequest {
	req := &validation.PatchRequest{Label: p.Label, Condition: p.Condition}
	if p.Status != nil {
		s := string(*p.Status)
		req.Status = &s
	}
	if p.Style != nil {
		s := string(*p.Style)
		req.Style = &s
	}
	return req
}

// Update applies patch to the connection with the given id and returns the
// updated copy. An empty patch is a no-op that emits nothing.
func (r *Registry) Update(id string, patch Patch) (*diagram.Connection, error) {
	timer := logging.StartTimer(r.logger, "update connection", logging.ConnectionID(id))

	rec, ok := r.records[id]
	if !ok {
		err := fmt.Errorf("update %q: %w", id, ErrConnectionNotFound)
		r.metrics.RecordRegistryOperation("update", metrics.StatusError, timer.EndError(err))
		return nil, err
	}
	if err := validation.ValidatePatch(patch.request()); err != nil {
		err = fmt.Errorf("update %q: %w", id, err)
		r.metrics.RecordRegistryOperation("update", metrics.StatusError, timer.EndError(err))
		return nil, err
	}
	if patch.IsEmpty() {
		r.metrics.RecordRegistryOperation("update", metrics.StatusNoop, timer.End())
		return rec.conn.Clone(), nil
	}

	c := rec.conn
	if patch.Label != nil {
		c.Label = *patch.Label
	}
	if patch.Condition != nil {
		c.Condition = *patch.Condition
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.Style != nil {
		c.Style = patch.Style.OrDefault()
	}
	c.UpdatedAt = r.now()

	r.metrics.RecordRegistryOperation("update", metrics.StatusSuccess, timer.End())
	r.emitter.Emit(events.Event{
		Kind:         events.ConnectionUpdated,
		ConnectionID: c.ID,
		SourcePortID: c.SourcePortID,
		TargetPortID: c.TargetPortID,
		Connection:   c.Clone(),
	})
	return c.Clone(), nil
}

// Delete removes the connection with the given id. Unknown ids are a no-op;
// the result reports whether anything was removed.
func (r *Registry) Delete(id string) bool {
	timer := logging.StartTimer(r.logger, "delete connection", logging.ConnectionID(id))
	rec, ok := r.records[id]
	if !ok {
		r.metrics.RecordRegistryOperation("delete", metrics.StatusNoop, timer.End())
		return false
	}
	r.remove(rec, events.Event{})
	r.metrics.RecordRegistryOperation("delete", metrics.StatusSuccess, timer.End())
	return true
}

// DeleteByNode removes every connection with an endpoint on nodeID and
// returns the removed connections in creation order.
func (r *Registry) DeleteByNode(nodeID string) []*diagram.Connection {
	timer := logging.StartTimer(r.logger, "delete connections by node", logging.NodeID(nodeID))
	var matched []*record
	for _, rec := range r.records {
		if r.touchesNode(rec, nodeID) {
			matched = append(matched, rec)
		}
	}
	removed := r.removeAll(sortBySeq(matched), events.Event{NodeID: nodeID})
	r.metrics.RecordRegistryOperation("delete_by_node", cascadeStatus(removed), timer.End(logging.Count(len(removed))))
	return removed
}

// DeleteByPort removes every connection with an endpoint on portID and
// returns the removed connections in creation order.
func (r *Registry) DeleteByPort(portID string) []*diagram.Connection {
	timer := logging.StartTimer(r.logger, "delete connections by port", logging.PortID(portID))
	matched := make([]*record, 0, len(r.byPort[portID]))
	for id := range r.byPort[portID] {
		matched = append(matched, r.records[id])
	}
	removed := r.removeAll(sortBySeq(matched), events.Event{PortID: portID})
	r.metrics.RecordRegistryOperation("delete_by_port", cascadeStatus(removed), timer.End(logging.Count(len(removed))))
	return removed
}

// MovePort re-homes the stored endpoint node of every connection on portID
// after the host moved the port to another node.
func (r *Registry) MovePort(portID, nodeID string) {
	for id := range r.byPort[portID] {
		rec := r.records[id]
		r.unlink(rec.sourceNode, rec.targetNode)
		if rec.conn.SourcePortID == portID {
			rec.sourceNode = nodeID
		}
		if rec.conn.TargetPortID == portID {
			rec.targetNode = nodeID
		}
		r.link(rec.sourceNode, rec.targetNode)
	}
}

func cascadeStatus(removed []*diagram.Connection) string {
	if len(removed) == 0 {
		return metrics.StatusNoop
	}
	return metrics.StatusSuccess
}

func (r *Registry) removeAll(recs []*record, cause events.Event) []*diagram.Connection {
	removed := make([]*diagram.Connection, 0, len(recs))
	for _, rec := range recs {
		removed = append(removed, r.remove(rec, cause))
	}
	return removed
}

// remove drops rec and emits connection-deleted. cause carries the node or
// port id for cascades.
func (r *Registry) remove(rec *record, cause events.Event) *diagram.Connection {
	c := rec.conn
	r.unindex(rec)
	delete(r.records, c.ID)
	r.metrics.SetConnections(len(r.records))

	r.logger.Info("connection deleted", logging.ConnectionID(c.ID))
	r.emitter.Emit(events.Event{
		Kind:         events.ConnectionDeleted,
		ConnectionID: c.ID,
		SourcePortID: c.SourcePortID,
		TargetPortID: c.TargetPortID,
		NodeID:       cause.NodeID,
		PortID:       cause.PortID,
		Connection:   c.Clone(),
	})
	return c.Clone()
}
