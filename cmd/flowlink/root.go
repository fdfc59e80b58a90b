package main

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/config"
	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/scene"
	"github.com/spf13/cobra"
)

// Version is the current version of flowlink
var Version = "0.1.0"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	format     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "flowlink",
		Short: "Validate and inspect connection diagrams",
		Long: `flowlink loads a scene file (nodes, ports and connections in YAML),
replays it through the connection engine and reports what the validator did.

Every connection in a scene goes through the same checks an interactive
drag does: endpoint existence, direction, data type, capacity, duplicates,
self loops and, when enabled, cycles.

Examples:
  flowlink check pipeline.yaml               # Accepted and rejected connections
  flowlink check --strict pipeline.yaml      # Fail if anything was rejected
  flowlink paths pipeline.yaml               # Path descriptors for rendering
  flowlink query pipeline.yaml '{ cycles { nodes } }'
  flowlink serve pipeline.yaml --addr :8080  # GraphQL over HTTP`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file replacing the scene's config section")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.format, "format", formatJSON, "Output format: json | yaml")

	root.AddCommand(
		newCheckCmd(opts),
		newPathsCmd(opts),
		newQueryCmd(opts),
		newMetricsCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// load reads a scene, resolves its config and replays it into a new engine.
// The caller owns the returned engine.
func (o *rootOptions) load(path string) (*engine.Engine, *scene.Report, *metrics.Registry, error) {
	s, err := scene.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}

	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, nil, nil, err
		}
		s.Config = cfg
	} else if err := s.Config.ApplyEnv(); err != nil {
		return nil, nil, nil, err
	}
	if o.logLevel != "" {
		s.Config.LogLevel = o.logLevel
	}

	logger := logging.NewStderrLogger(s.Config.Level()).With(logging.Component("cli"))
	reg := metrics.NewRegistry()

	timer := logging.StartTimer(logger, "scene loaded", logging.String("path", path))
	e, report, err := scene.Build(s, engine.WithLogger(logger), engine.WithMetrics(reg))
	if err != nil {
		timer.EndError(err)
		return nil, nil, nil, fmt.Errorf("build %s: %w", path, err)
	}
	timer.End(
		logging.Int("accepted", len(report.Accepted)),
		logging.Int("rejected", len(report.Rejected)),
	)
	return e, report, reg, nil
}
