// Package graphql exposes an engine's ports, connections, validation and
// paths through a GraphQL schema.
package graphql

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/graphql-go/graphql"
)

// schemaBuilder holds the engine the object types resolve against.
type schemaBuilder struct {
	engine *engine.Engine

	portType       *graphql.Object
	nodeType       *graphql.Object
	connectionType *graphql.Object
	createType     *graphql.Object
}

// GenerateSchema builds the schema over e. Resolvers call e directly, so
// queries must not run concurrently with other engine use; Handler
// serialises them.
func GenerateSchema(e *engine.Engine) (graphql.Schema, error) {
	b := &schemaBuilder{engine: e}
	b.buildTypes()

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    b.queryType(),
		Mutation: b.mutationType(),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func (b *schemaBuilder) buildTypes() {
	b.portType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Port",
		Fields: graphql.Fields{
			"id":             field(graphql.NewNonNull(graphql.ID), func(p diagram.Port) any { return p.ID }),
			"nodeId":         field(graphql.NewNonNull(graphql.ID), func(p diagram.Port) any { return p.NodeID }),
			"direction":      field(graphql.String, func(p diagram.Port) any { return string(p.Direction) }),
			"dataType":       field(graphql.String, func(p diagram.Port) any { return p.DataType }),
			"anchor":         field(graphql.String, func(p diagram.Port) any { return string(p.Anchor) }),
			"maxConnections": field(graphql.Int, func(p diagram.Port) any { return p.MaxConnections }),
			"connectionCount": field(graphql.Int, func(p diagram.Port) any {
				return b.engine.Registry().IncomingCount(p.ID)
			}),
			"position": &graphql.Field{
				Type: pointType,
				Resolve: func(rp graphql.ResolveParams) (any, error) {
					p, ok := rp.Source.(diagram.Port)
					if !ok {
						return nil, nil
					}
					return b.engine.ResolvePort(p.ID)
				},
			},
		},
	})

	b.nodeType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":       field(graphql.NewNonNull(graphql.ID), func(n diagram.Node) any { return n.ID }),
			"position": field(pointType, func(n diagram.Node) any { return n.Position }),
			"width":    field(graphql.Float, func(n diagram.Node) any { return n.Size.Width }),
			"height":   field(graphql.Float, func(n diagram.Node) any { return n.Size.Height }),
			"ports": field(graphql.NewList(b.portType), func(n diagram.Node) any {
				return b.engine.Ports(n.ID)
			}),
		},
	})

	b.connectionType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Connection",
		Fields: graphql.Fields{
			"id":           field(graphql.NewNonNull(graphql.ID), func(c *diagram.Connection) any { return c.ID }),
			"sourcePortId": field(graphql.NewNonNull(graphql.ID), func(c *diagram.Connection) any { return c.SourcePortID }),
			"targetPortId": field(graphql.NewNonNull(graphql.ID), func(c *diagram.Connection) any { return c.TargetPortID }),
			"status":       field(connectionStatusEnum, func(c *diagram.Connection) any { return string(c.Status) }),
			"style":        field(connectionStyleEnum, func(c *diagram.Connection) any { return string(c.Style) }),
			"label":        field(graphql.String, func(c *diagram.Connection) any { return nullable(c.Label) }),
			"condition":    field(graphql.String, func(c *diagram.Connection) any { return nullable(c.Condition) }),
			"createdAt":    field(graphql.String, func(c *diagram.Connection) any { return timestamp(c.CreatedAt) }),
			"updatedAt":    field(graphql.String, func(c *diagram.Connection) any { return timestamp(c.UpdatedAt) }),
			"source": field(b.portType, func(c *diagram.Connection) any {
				return b.portOrNil(c.SourcePortID)
			}),
			"target": field(b.portType, func(c *diagram.Connection) any {
				return b.portOrNil(c.TargetPortID)
			}),
			// path is null while an endpoint does not resolve.
			"path": field(pathType, func(c *diagram.Connection) any {
				desc, err := b.engine.ConnectionPath(c.ID)
				if err != nil {
					return nil
				}
				return desc
			}),
		},
	})

	b.createType = graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateConnectionResult",
		Fields: graphql.Fields{
			"connection": field(b.connectionType, func(r createResult) any {
				if r.conn == nil {
					return nil
				}
				return r.conn
			}),
			"valid":   field(graphql.NewNonNull(graphql.Boolean), func(r createResult) any { return r.res.Valid }),
			"reason":  field(graphql.String, func(r createResult) any { return nullable(string(r.res.Reason)) }),
			"message": field(graphql.String, func(r createResult) any { return nullable(r.res.Message) }),
		},
	})
}

func (b *schemaBuilder) portOrNil(id string) any {
	p, ok := b.engine.Port(id)
	if !ok {
		return nil
	}
	return p
}

func (b *schemaBuilder) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"connections": &graphql.Field{
				Type: graphql.NewList(b.connectionType),
				Args: graphql.FieldConfigArgument{
					"nodeId": &graphql.ArgumentConfig{Type: graphql.ID},
					"portId": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: b.resolveConnections,
			},
			"connection": &graphql.Field{
				Type: b.connectionType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: b.resolveConnection,
			},
			"nodes": &graphql.Field{
				Type: graphql.NewList(b.nodeType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.engine.Nodes(), nil
				},
			},
			"ports": &graphql.Field{
				Type: graphql.NewList(b.portType),
				Args: graphql.FieldConfigArgument{
					"nodeId": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					nodeID, _ := p.Args["nodeId"].(string)
					return b.engine.Ports(nodeID), nil
				},
			},
			"validate": &graphql.Field{
				Type: validationType,
				Args: graphql.FieldConfigArgument{
					"sourcePortId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"targetPortId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: b.resolveValidate,
			},
			"path": &graphql.Field{
				Type: pathType,
				Args: graphql.FieldConfigArgument{
					"connectionId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: b.resolvePath,
			},
			"cycles": &graphql.Field{
				Type: graphql.NewList(cycleType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.engine.Cycles(), nil
				},
			},
			"cycleStats": &graphql.Field{
				Type: cycleStatsType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return b.engine.CycleStats(), nil
				},
			},
		},
	})
}

func (b *schemaBuilder) mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createConnection": &graphql.Field{
				Type: b.createType,
				Args: graphql.FieldConfigArgument{
					"sourcePortId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"targetPortId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"label":        &graphql.ArgumentConfig{Type: graphql.String},
					"condition":    &graphql.ArgumentConfig{Type: graphql.String},
					"style":        &graphql.ArgumentConfig{Type: connectionStyleEnum},
				},
				Resolve: b.resolveCreateConnection,
			},
			"updateConnection": &graphql.Field{
				Type: b.connectionType,
				Args: graphql.FieldConfigArgument{
					"id":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"label":     &graphql.ArgumentConfig{Type: graphql.String},
					"condition": &graphql.ArgumentConfig{Type: graphql.String},
					"status":    &graphql.ArgumentConfig{Type: connectionStatusEnum},
					"style":     &graphql.ArgumentConfig{Type: connectionStyleEnum},
				},
				Resolve: b.resolveUpdateConnection,
			},
			"deleteConnection": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: b.resolveDeleteConnection,
			},
		},
	})
}
