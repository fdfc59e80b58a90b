package main

import (
	"github.com/spf13/cobra"
)

func newPathsCmd(opts *rootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "paths <scene.yaml>",
		Short: "Print path descriptors for the scene's connections",
		Long: `Builds the path descriptor, label point and condition point of every
renderable connection. Connections whose endpoints cannot be resolved are
skipped. With --id only that connection's path descriptor is printed, and an
unresolvable endpoint is an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			if id != "" {
				desc, err := e.ConnectionPath(id)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), opts.format, desc)
			}
			return writeOutput(cmd.OutOrStdout(), opts.format, e.Renderables())
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Only print the path of this connection")
	return cmd
}
