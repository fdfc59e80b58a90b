package engine

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/geometry"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
)

// Renderable is everything a renderer needs to draw one connection.
type Renderable struct {
	Connection     *diagram.Connection     `json:"connection"`
	Path           geometry.PathDescriptor `json:"path"`
	LabelPoint     diagram.Point           `json:"labelPoint"`
	ConditionPoint diagram.Point           `json:"conditionPoint"`
}

// ConnectionPath resolves both endpoints of connection id against the live
// layout and builds its path. A missing endpoint yields an error wrapping
// both ErrNotRenderable and the resolver's reason error.
func (e *Engine) ConnectionPath(id string) (geometry.PathDescriptor, error) {
	c, ok := e.registry.Get(id)
	if !ok {
		return geometry.PathDescriptor{}, fmt.Errorf("path %q: %w", id, registry.ErrConnectionNotFound)
	}
	return e.path(c)
}

func (e *Engine) path(c *diagram.Connection) (geometry.PathDescriptor, error) {
	style := string(c.Style.OrDefault())
	start, err := e.resolver.ResolvePort(c.SourcePortID)
	if err != nil {
		e.metrics.RecordGeometryRequest(style, metrics.StatusError)
		return geometry.PathDescriptor{}, fmt.Errorf("connection %q: %w: %w", c.ID, ErrNotRenderable, err)
	}
	end, err := e.resolver.ResolvePort(c.TargetPortID)
	if err != nil {
		e.metrics.RecordGeometryRequest(style, metrics.StatusError)
		return geometry.PathDescriptor{}, fmt.Errorf("connection %q: %w: %w", c.ID, ErrNotRenderable, err)
	}
	desc, err := geometry.Path(start, end, c.Style, e.pathOpts...)
	if err != nil {
		e.metrics.RecordGeometryRequest(style, metrics.StatusError)
		return geometry.PathDescriptor{}, fmt.Errorf("connection %q: %w: %w", c.ID, ErrNotRenderable, err)
	}
	e.metrics.RecordGeometryRequest(style, metrics.StatusSuccess)
	return desc, nil
}

// Renderables returns a Renderable for every connection whose endpoints
// resolve, in creation order. Connections that do not resolve are skipped.
func (e *Engine) Renderables() []Renderable {
	conns := e.registry.Query(registry.Filter{})
	out := make([]Renderable, 0, len(conns))
	for _, c := range conns {
		desc, err := e.path(c)
		if err != nil {
			e.logger.Debug("skipping connection", logging.ConnectionID(c.ID), logging.Error(err))
			continue
		}
		r := Renderable{Connection: c, Path: desc}
		// The descriptor is valid, so sampling it cannot fail.
		r.LabelPoint, _ = geometry.PointAt(desc, e.cfg.LabelPosition)
		r.ConditionPoint, _ = geometry.PointAt(desc, e.cfg.ConditionPosition)
		out = append(out, r)
	}
	return out
}
