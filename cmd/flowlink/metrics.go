package main

import (
	"github.com/spf13/cobra"
)

func newMetricsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <scene.yaml>",
		Short: "Apply a scene and print the resulting metrics",
		Long: `Applies the scene, renders every connection once and prints the
collected metrics in the Prometheus text exposition format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, reg, err := opts.load(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			e.Renderables()
			return reg.WriteText(cmd.OutOrStdout())
		},
	}
}
