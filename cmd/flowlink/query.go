package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/graphql"
	"github.com/spf13/cobra"
)

var errQueryFailed = errors.New("query returned errors")

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		vars     string
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "query <scene.yaml> <graphql>",
		Short: "Run a GraphQL query or mutation against a scene",
		Long: `Builds the scene and executes one GraphQL document against it. The
response is always printed as JSON, in the same shape the HTTP endpoint
returns.

Examples:
  flowlink query scene.yaml '{ connections { id sourcePortId targetPortId } }'
  flowlink query scene.yaml 'query($s: ID!, $d: ID!) { validate(sourcePortId: $s, targetPortId: $d) { valid reason } }' \
    --vars '{"s": "fetch.out", "d": "parse.in"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var variables map[string]any
			if vars != "" {
				if err := json.Unmarshal([]byte(vars), &variables); err != nil {
					return fmt.Errorf("invalid --vars: %w", err)
				}
			}

			e, _, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			schema, err := graphql.GenerateSchema(e)
			if err != nil {
				return err
			}
			result := graphql.ExecuteWithDepthLimit(schema, args[1], maxDepth, variables)
			if err := writeOutput(cmd.OutOrStdout(), formatJSON, graphql.NewResponse(result)); err != nil {
				return err
			}
			if result.HasErrors() {
				return fmt.Errorf("%w: %s", errQueryFailed, result.Errors[0].Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vars, "vars", "", "Query variables as a JSON object")
	cmd.Flags().IntVar(&maxDepth, "max-depth", graphql.DefaultMaxDepth, "Maximum query depth")
	return cmd
}
