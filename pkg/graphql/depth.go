package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth bounds nesting such as connection -> source -> position.
const DefaultMaxDepth = 6

// calculateQueryDepth calculates the maximum depth of a GraphQL query
func calculateQueryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, definition := range document.Definitions {
		if frag, ok := definition.(*ast.FragmentDefinition); ok {
			fragments[frag.Name.Value] = frag
		}
	}

	maxDepth := 0
	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.OperationDefinition); ok {
			depth := selectionSetDepth(def.SelectionSet, 1, fragments, map[string]bool{})
			if depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth
}

// selectionSetDepth returns the deepest level reached below selectionSet.
// Leaf fields do not add a level. seen guards against fragment cycles.
func selectionSetDepth(selectionSet *ast.SelectionSet, currentDepth int, fragments map[string]*ast.FragmentDefinition, seen map[string]bool) int {
	if selectionSet == nil || len(selectionSet.Selections) == 0 {
		return currentDepth
	}

	maxDepth := currentDepth
	for _, selection := range selectionSet.Selections {
		var depth int
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") || sel.SelectionSet == nil {
				continue
			}
			depth = selectionSetDepth(sel.SelectionSet, currentDepth+1, fragments, seen)
		case *ast.InlineFragment:
			depth = selectionSetDepth(sel.SelectionSet, currentDepth, fragments, seen)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			depth = selectionSetDepth(frag.SelectionSet, currentDepth, fragments, seen)
			delete(seen, name)
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}

// ValidateQueryDepth validates a query against the depth limit
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{
		Source: query,
	})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}

	if queryDepth := calculateQueryDepth(document); queryDepth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", queryDepth, maxDepth)
	}
	return nil
}

// ExecuteWithDepthLimit executes a GraphQL query with depth validation
func ExecuteWithDepthLimit(schema graphql.Schema, query string, maxDepth int, variableValues map[string]any) *graphql.Result {
	if err := ValidateQueryDepth(query, maxDepth); err != nil {
		return &graphql.Result{
			Errors: []gqlerrors.FormattedError{
				gqlerrors.FormatError(err),
			},
		}
	}

	params := graphql.Params{
		Schema:        schema,
		RequestString: query,
	}
	if variableValues != nil {
		params.VariableValues = variableValues
	}
	return graphql.Do(params)
}
