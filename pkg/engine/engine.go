// Package engine wires the layout, connection registry, drag session, event
// bus, metrics and logging into the single object a host talks to.
//
// An Engine is not safe for concurrent use. Event subscriptions obtained with
// Subscribe may be drained from other goroutines.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/algorithms"
	"github.com/dd0wney/cluso-flowlink/pkg/config"
	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/geometry"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/ports"
	"github.com/dd0wney/cluso-flowlink/pkg/pubsub"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"github.com/dd0wney/cluso-flowlink/pkg/session"
	"github.com/dd0wney/cluso-flowlink/pkg/validation"
)

// ErrNotRenderable is returned by ConnectionPath when an endpoint no longer
// resolves. It wraps the resolver's reason error.
var ErrNotRenderable = errors.New("connection not renderable")

// Engine is the host-facing facade.
type Engine struct {
	cfg       config.Config
	layout    *diagram.Layout
	resolver  *ports.Resolver
	validator *constraints.Validator
	bus       *events.Bus
	registry  *registry.Registry
	session   *session.Session
	pathOpts  []geometry.Option

	logger  logging.Logger
	metrics *metrics.Registry
}

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
	newID   func() string
	now     func() time.Time
	buffer  int
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics registry shared by every component.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithIDGenerator replaces the registry's uuid id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithClock replaces time.Now for events and connection timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithEventBuffer sets the channel size of each asynchronous subscription.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// New validates cfg and builds an engine with an empty layout.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.buffer = validation.DefaultOr(o.buffer, pubsub.DefaultBuffer)
	logger := logging.OrNop(o.logger)

	busOpts := []events.BusOption{events.WithBuffer(o.buffer)}
	if o.now != nil {
		busOpts = append(busOpts, events.WithClock(o.now))
	}

	e := &Engine{
		cfg:       cfg,
		layout:    diagram.NewLayout(),
		validator: constraints.NewValidator(cfg.ConstraintOptions()),
		bus:       events.NewBus(busOpts...),
		pathOpts:  []geometry.Option{geometry.WithCurvature(cfg.BezierCurvature)},
		logger:    logger.With(logging.Component("engine")),
		metrics:   o.metrics,
	}
	e.resolver = ports.NewResolver(e.layout)
	e.bus.OnEvent(func(ev events.Event) { e.metrics.RecordEvent(string(ev.Kind)) })

	regOpts := []registry.Option{
		registry.WithValidator(e.validator),
		registry.WithEmitter(e.bus),
		registry.WithLogger(logger),
		registry.WithMetrics(o.metrics),
		registry.WithDefaultStyle(cfg.Style.OrDefault()),
	}
	if o.newID != nil {
		regOpts = append(regOpts, registry.WithIDGenerator(o.newID))
	}
	if o.now != nil {
		regOpts = append(regOpts, registry.WithClock(o.now))
	}
	e.registry = registry.New(e.layout, regOpts...)

	e.session = session.New(e.layout, e.registry, e.validator,
		session.WithSnapRadius(cfg.SnapRadius),
		session.WithEmitter(e.bus),
		session.WithLogger(logger),
		session.WithMetrics(o.metrics),
		session.WithCreator(func(p diagram.Proposal) (*diagram.Connection, *constraints.Result) {
			return e.registry.Create(p)
		}),
	)

	e.logger.Info("engine created",
		logging.String("style", string(cfg.Style.OrDefault())),
		logging.Float64("snap_radius", cfg.SnapRadius),
		logging.Bool("allow_self_loop", cfg.AllowSelfLoop),
		logging.Bool("enforce_acyclic", cfg.EnforceAcyclic))
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// Registry returns the connection registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Session returns the drag-connect session.
func (e *Engine) Session() *session.Session { return e.session }

// Metrics returns the metrics registry, or nil.
func (e *Engine) Metrics() *metrics.Registry { return e.metrics }

// Node returns a copy of the node with the given id.
func (e *Engine) Node(id string) (diagram.Node, bool) {
	n, ok := e.layout.Node(id)
	if !ok {
		return diagram.Node{}, false
	}
	return *n, true
}

// Port returns a copy of the port with the given id.
func (e *Engine) Port(id string) (diagram.Port, bool) {
	p, ok := e.layout.Port(id)
	if !ok {
		return diagram.Port{}, false
	}
	return *p, true
}

// Nodes returns copies of all nodes sorted by id.
func (e *Engine) Nodes() []diagram.Node {
	nodes := e.layout.Nodes()
	out := make([]diagram.Node, len(nodes))
	for i, n := range nodes {
		out[i] = *n
	}
	return out
}

// Ports returns copies of the ports on nodeID in declaration order, or of
// every port sorted by id when nodeID is empty.
func (e *Engine) Ports(nodeID string) []diagram.Port {
	if nodeID == "" {
		all := e.layout.Ports()
		out := make([]diagram.Port, len(all))
		for i, p := range all {
			out[i] = *p
		}
		return out
	}
	ids := e.layout.PortsOfNode(nodeID)
	out := make([]diagram.Port, 0, len(ids))
	for _, id := range ids {
		if p, ok := e.layout.Port(id); ok {
			out = append(out, *p)
		}
	}
	return out
}

// ResolvePort returns a port's current anchor.
func (e *Engine) ResolvePort(id string) (diagram.Point, error) {
	return e.resolver.ResolvePort(id)
}

// UpsertNode adds or moves a node.
func (e *Engine) UpsertNode(n diagram.Node) error {
	if err := validation.ValidateNode(n); err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}
	e.layout.UpsertNode(n)
	e.session.Invalidate()
	return nil
}

// RemoveNode removes a node and its ports, force-cancels a drag that
// referenced any of them and deletes every connection touching the node.
// It returns the deleted connections in creation order.
func (e *Engine) RemoveNode(id string) []*diagram.Connection {
	portIDs := e.layout.RemoveNode(id)
	e.session.ForceCancelIfReferences(id, portIDs)
	removed := e.registry.DeleteByNode(id)
	for _, portID := range portIDs {
		removed = append(removed, e.registry.DeleteByPort(portID)...)
	}
	e.logger.Info("node removed", logging.NodeID(id),
		logging.Int("ports", len(portIDs)), logging.Count(len(removed)))
	return removed
}

// UpsertPort declares or re-declares a port. Moving a port to another node
// re-homes its connections; flipping its direction deletes them, since they
// would no longer run output to input. Lowering an input's MaxConnections
// below its current incoming count is refused with CAPACITY_EXCEEDED and
// leaves the old declaration in place.
func (e *Engine) UpsertPort(p diagram.Port) error {
	if err := validation.ValidatePort(p); err != nil {
		return fmt.Errorf("upsert port: %w", err)
	}
	old, existed := e.Port(p.ID)
	if existed && old.Direction == p.Direction && !p.IsUnbounded() {
		if n := e.registry.IncomingCount(p.ID); n > p.MaxConnections {
			e.logger.Warn("port capacity below incoming count", logging.PortID(p.ID),
				logging.Count(n), logging.Int("max_connections", p.MaxConnections))
			return fmt.Errorf("upsert port: %w", diagram.NewReasonError(diagram.ReasonCapacityExceeded,
				"input %q has %d connection(s), cannot lower limit to %d", p.ID, n, p.MaxConnections))
		}
	}
	e.layout.UpsertPort(p)
	e.session.Invalidate()
	if !existed {
		return nil
	}
	if old.Direction != p.Direction {
		e.session.ForceCancelIfReferences("", []string{p.ID})
		removed := e.registry.DeleteByPort(p.ID)
		e.logger.Warn("port direction changed", logging.PortID(p.ID), logging.Count(len(removed)))
		return nil
	}
	if old.NodeID != p.NodeID {
		e.session.ForceCancelIfReferences("", []string{p.ID})
		e.registry.MovePort(p.ID, p.NodeID)
	}
	return nil
}

// RemovePort removes a port, force-cancels a drag that referenced it and
// deletes its connections.
func (e *Engine) RemovePort(id string) []*diagram.Connection {
	e.layout.RemovePort(id)
	e.session.ForceCancelIfReferences("", []string{id})
	removed := e.registry.DeleteByPort(id)
	e.logger.Info("port removed", logging.PortID(id), logging.Count(len(removed)))
	return removed
}

// Validate dry-runs the validator against the current state.
func (e *Engine) Validate(p diagram.Proposal) *constraints.Result {
	return e.registry.Validate(p)
}

// Cycles reports node cycles among the current connections.
func (e *Engine) Cycles() []algorithms.Cycle {
	return e.registry.Cycles()
}

// HasCycle reports whether the connections form any node cycle.
func (e *Engine) HasCycle() bool {
	return e.registry.HasCycle()
}

// CycleStats summarises the current node cycles.
func (e *Engine) CycleStats() algorithms.CycleStats {
	return algorithms.AnalyzeCycles(e.registry.Cycles())
}

// OnEvent registers a synchronous listener. Call the returned function to
// remove it.
func (e *Engine) OnEvent(fn events.Listener) (remove func()) {
	return e.bus.OnEvent(fn)
}

// Subscribe returns an asynchronous subscription to one event kind, or to
// all events when kind is empty.
func (e *Engine) Subscribe(ctx context.Context, kind events.Kind) (*pubsub.Subscription[events.Event], error) {
	if kind != "" && !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown event kind %q", validation.ErrInvalidInput, kind)
	}
	return e.bus.Subscribe(ctx, kind)
}

// DroppedEvents is the number of events asynchronous subscribers missed
// because their buffers were full. Safe to call from any goroutine.
func (e *Engine) DroppedEvents() uint64 {
	return e.bus.Dropped()
}

// Close ends every event subscription.
func (e *Engine) Close() {
	e.bus.Close()
}
