package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errRejected = errors.New("scene has rejected connections")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <scene.yaml>",
		Short: "Apply a scene and report accepted and rejected connections",
		Long: `Replays the scene's connections through the registry in file order and
prints the accepted connections and, for each rejected one, the reason code
the validator returned.

With --strict the command exits non-zero when any connection was rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, report, _, err := opts.load(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			if err := writeOutput(cmd.OutOrStdout(), opts.format, report); err != nil {
				return err
			}
			if strict && len(report.Rejected) > 0 {
				return fmt.Errorf("%w: %d of %d", errRejected,
					len(report.Rejected), len(report.Rejected)+len(report.Accepted))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero if any connection is rejected")
	return cmd
}
