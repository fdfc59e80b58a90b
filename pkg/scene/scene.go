// Package scene loads a YAML description of nodes, ports and connections and
// replays it into an engine. Connections go through the registry, so a scene
// can only produce connections the validator accepts.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-flowlink/pkg/config"
	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScene wraps decode and apply failures.
var ErrInvalidScene = errors.New("invalid scene")

// ConnectionSpec is a connection as written in a scene file.
type ConnectionSpec struct {
	SourcePortID string         `yaml:"sourcePortId" json:"sourcePortId"`
	TargetPortID string         `yaml:"targetPortId" json:"targetPortId"`
	Label        string         `yaml:"label,omitempty" json:"label,omitempty"`
	Condition    string         `yaml:"condition,omitempty" json:"condition,omitempty"`
	Style        diagram.Style  `yaml:"style,omitempty" json:"style,omitempty"`
	Status       diagram.Status `yaml:"status,omitempty" json:"status,omitempty"`
}

// Proposal returns the endpoints as a proposal.
func (c ConnectionSpec) Proposal() diagram.Proposal {
	return diagram.Proposal{SourcePortID: c.SourcePortID, TargetPortID: c.TargetPortID}
}

// Scene is a decoded scene file.
type Scene struct {
	Config      config.Config    `yaml:"-"`
	Nodes       []diagram.Node   `yaml:"nodes"`
	Ports       []diagram.Port   `yaml:"ports"`
	Connections []ConnectionSpec `yaml:"connections"`
}

type document struct {
	Config      *yaml.Node       `yaml:"config"`
	Nodes       []diagram.Node   `yaml:"nodes"`
	Ports       []diagram.Port   `yaml:"ports"`
	Connections []ConnectionSpec `yaml:"connections"`
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene. The optional config section is layered over
// config.Default; unknown keys anywhere are an error.
func Parse(data []byte) (*Scene, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	s := &Scene{
		Config:      config.Default(),
		Nodes:       doc.Nodes,
		Ports:       doc.Ports,
		Connections: doc.Connections,
	}
	if doc.Config != nil {
		// Re-encode the section so config.Parse applies its own strict
		// decoding over the defaults.
		raw, err := yaml.Marshal(doc.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: config: %v", ErrInvalidScene, err)
		}
		cfg, err := config.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
		s.Config = cfg
	}
	return s, nil
}

// Rejection is a scene connection the validator refused.
type Rejection struct {
	Spec    ConnectionSpec     `json:"spec"`
	Reason  diagram.ReasonCode `json:"reason"`
	Message string             `json:"message"`
}

// Report lists what Apply did with the scene's connections.
type Report struct {
	Accepted []*diagram.Connection `json:"accepted"`
	Rejected []Rejection           `json:"rejected"`
}

// Apply upserts the scene's nodes and ports into e, then creates its
// connections in file order. Invalid node or port declarations abort with an
// error; rejected connections are recorded in the report.
func Apply(e *engine.Engine, s *Scene) (*Report, error) {
	for i, n := range s.Nodes {
		if err := e.UpsertNode(n); err != nil {
			return nil, fmt.Errorf("%w: nodes[%d]: %w", ErrInvalidScene, i, err)
		}
	}
	for i, p := range s.Ports {
		if err := e.UpsertPort(p); err != nil {
			return nil, fmt.Errorf("%w: ports[%d]: %w", ErrInvalidScene, i, err)
		}
	}

	report := &Report{}
	for i, spec := range s.Connections {
		conn, res := create(e, spec)
		if !res.Valid {
			report.Rejected = append(report.Rejected, Rejection{Spec: spec, Reason: res.Reason, Message: res.Message})
			continue
		}
		if spec.Status != "" && spec.Status != conn.Status {
			status := spec.Status
			updated, err := e.Registry().Update(conn.ID, registry.Patch{Status: &status})
			if err != nil {
				return report, fmt.Errorf("%w: connections[%d]: %w", ErrInvalidScene, i, err)
			}
			conn = updated
		}
		report.Accepted = append(report.Accepted, conn)
	}
	return report, nil
}

func create(e *engine.Engine, spec ConnectionSpec) (*diagram.Connection, *constraints.Result) {
	var opts []registry.CreateOption
	if spec.Label != "" {
		opts = append(opts, registry.WithLabel(spec.Label))
	}
	if spec.Condition != "" {
		opts = append(opts, registry.WithCondition(spec.Condition))
	}
	if spec.Style != "" {
		opts = append(opts, registry.WithStyle(spec.Style))
	}
	return e.Registry().Create(spec.Proposal(), opts...)
}

// Build creates an engine from the scene's config and applies the scene.
func Build(s *Scene, opts ...engine.Option) (*engine.Engine, *Report, error) {
	e, err := engine.New(s.Config, opts...)
	if err != nil {
		return nil, nil, err
	}
	report, err := Apply(e, s)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, report, nil
}
