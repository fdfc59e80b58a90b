package graphql

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"github.com/graphql-go/graphql"
)

// createResult is the source of CreateConnectionResult.
type createResult struct {
	conn *diagram.Connection
	res  *constraints.Result
}

func stringArg(p graphql.ResolveParams, name string) (string, bool) {
	v, ok := p.Args[name].(string)
	return v, ok
}

func (b *schemaBuilder) resolveConnections(p graphql.ResolveParams) (any, error) {
	nodeID, _ := stringArg(p, "nodeId")
	portID, _ := stringArg(p, "portId")
	return b.engine.Registry().Query(registry.Filter{NodeID: nodeID, PortID: portID}), nil
}

func (b *schemaBuilder) resolveConnection(p graphql.ResolveParams) (any, error) {
	id, ok := stringArg(p, "id")
	if !ok {
		return nil, fmt.Errorf("id argument is required")
	}
	c, found := b.engine.Registry().Get(id)
	if !found {
		return nil, nil
	}
	return c, nil
}

func (b *schemaBuilder) resolveValidate(p graphql.ResolveParams) (any, error) {
	src, _ := stringArg(p, "sourcePortId")
	dst, _ := stringArg(p, "targetPortId")
	return b.engine.Validate(diagram.Proposal{SourcePortID: src, TargetPortID: dst}), nil
}

func (b *schemaBuilder) resolvePath(p graphql.ResolveParams) (any, error) {
	id, ok := stringArg(p, "connectionId")
	if !ok {
		return nil, fmt.Errorf("connectionId argument is required")
	}
	desc, err := b.engine.ConnectionPath(id)
	if err != nil {
		return nil, err
	}
	return desc, nil
}

func (b *schemaBuilder) resolveCreateConnection(p graphql.ResolveParams) (any, error) {
	src, _ := stringArg(p, "sourcePortId")
	dst, _ := stringArg(p, "targetPortId")

	var opts []registry.CreateOption
	if label, ok := stringArg(p, "label"); ok {
		opts = append(opts, registry.WithLabel(label))
	}
	if cond, ok := stringArg(p, "condition"); ok {
		opts = append(opts, registry.WithCondition(cond))
	}
	if style, ok := stringArg(p, "style"); ok {
		opts = append(opts, registry.WithStyle(diagram.Style(style)))
	}

	conn, res := b.engine.Registry().Create(diagram.Proposal{SourcePortID: src, TargetPortID: dst}, opts...)
	return createResult{conn: conn, res: res}, nil
}

func (b *schemaBuilder) resolveUpdateConnection(p graphql.ResolveParams) (any, error) {
	id, ok := stringArg(p, "id")
	if !ok {
		return nil, fmt.Errorf("id argument is required")
	}

	var patch registry.Patch
	if label, ok := stringArg(p, "label"); ok {
		patch.Label = &label
	}
	if cond, ok := stringArg(p, "condition"); ok {
		patch.Condition = &cond
	}
	if status, ok := stringArg(p, "status"); ok {
		s := diagram.Status(status)
		patch.Status = &s
	}
	if style, ok := stringArg(p, "style"); ok {
		s := diagram.Style(style)
		patch.Style = &s
	}

	c, err := b.engine.Registry().Update(id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}
	return c, nil
}

func (b *schemaBuilder) resolveDeleteConnection(p graphql.ResolveParams) (any, error) {
	id, ok := stringArg(p, "id")
	if !ok {
		return nil, fmt.Errorf("id argument is required")
	}
	return b.engine.Registry().Delete(id), nil
}
