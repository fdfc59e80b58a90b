// Package registry is the canonical in-memory store of connections. Every
// mutation goes through the connection validator and emits exactly one event
// per affected connection before returning.
//
// A Registry is not safe for concurrent use.
package registry

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/algorithms"
	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/ports"
	"github.com/google/uuid"
)

// ErrConnectionNotFound is returned by Update for unknown ids.
var ErrConnectionNotFound = errors.New("connection not found")

const maxIDAttempts = 8

// record is a stored connection plus the node ids its endpoints belonged to
// when it was created (or last re-parented).
type record struct {
	conn       *diagram.Connection
	seq        uint64
	sourceNode string
	targetNode string
}

type pair struct {
	source, target string
}

// Registry stores connections and keeps the indexes the validator reads.
type Registry struct {
	layout    ports.LayoutReader
	validator *constraints.Validator

	records  map[string]*record
	byPort   map[string]map[string]struct{}
	byPair   map[pair]string
	incoming map[string]int
	// succ[u][v] counts connections from node u to node v.
	succ map[string]map[string]int
	seq  uint64

	defaultStyle diagram.Style
	newID        func() string
	now          func() time.Time
	emitter      events.Emitter
	logger       logging.Logger
	metrics      *metrics.Registry
}

// Option configures a Registry.
type Option func(*Registry)

// WithValidator replaces the default validator (no self loops, cycles allowed).
func WithValidator(v *constraints.Validator) Option {
	return func(r *Registry) { r.validator = v }
}

// WithEmitter sets where lifecycle events go.
func WithEmitter(e events.Emitter) Option {
	return func(r *Registry) { r.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithClock replaces time.Now for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithDefaultStyle sets the style given to connections created without one.
func WithDefaultStyle(s diagram.Style) Option {
	return func(r *Registry) { r.defaultStyle = s }
}

// New creates a registry over the host layout.
func New(layout ports.LayoutReader, opts ...Option) *Registry {
	r := &Registry{
		layout:       layout,
		records:      make(map[string]*record),
		byPort:       make(map[string]map[string]struct{}),
		byPair:       make(map[pair]string),
		incoming:     make(map[string]int),
		succ:         make(map[string]map[string]int),
		defaultStyle: diagram.DefaultStyle,
		newID:        uuid.NewString,
		now:          time.Now,
		emitter:      events.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = constraints.NewValidator(constraints.Options{})
	}
	if r.emitter == nil {
		r.emitter = events.Discard
	}
	r.logger = logging.OrNop(r.logger).With(logging.Component("registry"))
	return r
}

// Validate runs the validator against the current state without mutating.
func (r *Registry) Validate(p diagram.Proposal) *constraints.Result {
	return r.validator.Validate(r, p)
}

// Len returns the number of stored connections.
func (r *Registry) Len() int {
	return len(r.records)
}

// Get returns a copy of the connection with the given id.
func (r *Registry) Get(id string) (*diagram.Connection, bool) {
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.conn.Clone(), true
}

// Filter selects connections for Query. Empty fields match everything; when
// both are set a connection must match both.
type Filter struct {
	NodeID string
	PortID string
}

// Query returns copies of the matching connections in creation order.
func (r *Registry) Query(f Filter) []*diagram.Connection {
	var recs []*record
	if f.PortID != "" {
		for id := range r.byPort[f.PortID] {
			recs = append(recs, r.records[id])
		}
	} else {
		recs = make([]*record, 0, len(r.records))
		for _, rec := range r.records {
			recs = append(recs, rec)
		}
	}

	out := make([]*diagram.Connection, 0, len(recs))
	for _, rec := range sortBySeq(recs) {
		if f.NodeID != "" && !r.touchesNode(rec, f.NodeID) {
			continue
		}
		out = append(out, rec.conn.Clone())
	}
	return out
}

// Cycles reports the cycles in the node graph induced by connections.
func (r *Registry) Cycles() []algorithms.Cycle {
	return algorithms.DetectCycles(r)
}

// HasCycle reports whether the node graph has any cycle. It stops at the
// first one found.
func (r *Registry) HasCycle() bool {
	return algorithms.HasCycle(r)
}

func (r *Registry) touchesNode(rec *record, nodeID string) bool {
	if rec.sourceNode == nodeID || rec.targetNode == nodeID {
		return true
	}
	for _, portID := range []string{rec.conn.SourcePortID, rec.conn.TargetPortID} {
		if p, ok := r.layout.Port(portID); ok && p.NodeID == nodeID {
			return true
		}
	}
	return false
}

func sortBySeq(recs []*record) []*record {
	slices.SortFunc(recs, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })
	return recs
}

// nextID draws ids from the generator until one is unused, falling back to
// a random UUID if the generator keeps colliding.
func (r *Registry) nextID() string {
	for i := 0; i < maxIDAttempts; i++ {
		if id := r.newID(); id != "" && r.records[id] == nil {
			return id
		}
	}
	for {
		if id := uuid.NewString(); r.records[id] == nil {
			return id
		}
	}
}
