package graphql

import (
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/algorithms"
	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/geometry"
	"github.com/graphql-go/graphql"
)

// resolve adapts a typed accessor to a field resolver. Sources of any other
// type resolve to null.
func resolve[T any](fn func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if v, ok := p.Source.(T); ok {
			return fn(v), nil
		}
		return nil, nil
	}
}

func field[T any](t graphql.Output, fn func(T) any) *graphql.Field {
	return &graphql.Field{Type: t, Resolve: resolve(fn)}
}

var pointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Point",
	Fields: graphql.Fields{
		"x": field(graphql.NewNonNull(graphql.Float), func(p diagram.Point) any { return p.X }),
		"y": field(graphql.NewNonNull(graphql.Float), func(p diagram.Point) any { return p.Y }),
	},
})

var validationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ValidationResult",
	Fields: graphql.Fields{
		"valid":      field(graphql.NewNonNull(graphql.Boolean), func(r *constraints.Result) any { return r.Valid }),
		"reason":     field(graphql.String, func(r *constraints.Result) any { return nullable(string(r.Reason)) }),
		"message":    field(graphql.String, func(r *constraints.Result) any { return nullable(r.Message) }),
		"constraint": field(graphql.String, func(r *constraints.Result) any { return nullable(r.Constraint) }),
	},
})

var cycleType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Cycle",
	Fields: graphql.Fields{
		"nodes":  field(graphql.NewList(graphql.String), func(c algorithms.Cycle) any { return []string(c) }),
		"length": field(graphql.Int, func(c algorithms.Cycle) any { return len(c) }),
	},
})

var cycleStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CycleStats",
	Fields: graphql.Fields{
		"totalCycles":   field(graphql.Int, func(s algorithms.CycleStats) any { return s.TotalCycles }),
		"shortestCycle": field(graphql.Int, func(s algorithms.CycleStats) any { return s.ShortestCycle }),
		"longestCycle":  field(graphql.Int, func(s algorithms.CycleStats) any { return s.LongestCycle }),
		"averageLength": field(graphql.Float, func(s algorithms.CycleStats) any { return s.AverageLength }),
		"selfLoops":     field(graphql.Int, func(s algorithms.CycleStats) any { return s.SelfLoops }),
	},
})

var pathType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Path",
	Fields: graphql.Fields{
		"style":  field(graphql.String, func(d geometry.PathDescriptor) any { return string(d.Style) }),
		"points": field(graphql.NewList(pointType), func(d geometry.PathDescriptor) any { return d.Points }),
		"length": &graphql.Field{
			Type: graphql.Float,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				d, ok := p.Source.(geometry.PathDescriptor)
				if !ok {
					return nil, nil
				}
				return geometry.Length(d)
			},
		},
		"labelPoint": &graphql.Field{
			Type: pointType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				d, ok := p.Source.(geometry.PathDescriptor)
				if !ok {
					return nil, nil
				}
				return geometry.LabelPoint(d)
			},
		},
		"conditionPoint": &graphql.Field{
			Type: pointType,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				d, ok := p.Source.(geometry.PathDescriptor)
				if !ok {
					return nil, nil
				}
				return geometry.ConditionPoint(d)
			},
		},
	},
})

var (
	connectionStatusEnum = graphql.NewEnum(graphql.EnumConfig{
		Name: "ConnectionStatus",
		Values: graphql.EnumValueConfigMap{
			"IDLE":   &graphql.EnumValueConfig{Value: string(diagram.StatusIdle)},
			"ACTIVE": &graphql.EnumValueConfig{Value: string(diagram.StatusActive)},
			"ERROR":  &graphql.EnumValueConfig{Value: string(diagram.StatusError)},
		},
	})

	connectionStyleEnum = graphql.NewEnum(graphql.EnumConfig{
		Name: "ConnectionStyle",
		Values: graphql.EnumValueConfigMap{
			"BEZIER":     &graphql.EnumValueConfig{Value: string(diagram.StyleBezier)},
			"STRAIGHT":   &graphql.EnumValueConfig{Value: string(diagram.StyleStraight)},
			"ORTHOGONAL": &graphql.EnumValueConfig{Value: string(diagram.StyleOrthogonal)},
		},
	})
)

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
