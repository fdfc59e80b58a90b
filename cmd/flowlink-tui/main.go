// Command flowlink-tui edits a scene's connections with the mouse: press on a
// port, drag towards a compatible port and release to connect.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/scene"
)

func main() {
	logPath := flag.String("log", "", "Write JSON logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-log file] <scene.yaml>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	s, err := scene.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	if err := s.Config.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	// The terminal belongs to the UI, so logs only go to a file.
	var logger logging.Logger = logging.NopLogger{}
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logger = logging.NewJSONLogger(f, s.Config.Level())
	}

	e, report, err := scene.Build(s, engine.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}
	defer e.Close()
	for _, r := range report.Rejected {
		logger.Warn("scene connection rejected",
			logging.PortID(r.Spec.SourcePortID),
			logging.String("target_port_id", r.Spec.TargetPortID),
			logging.Reason(r.Reason))
	}

	p := tea.NewProgram(newModel(e),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
