package main

import (
	"os"

	"github.com/marmos91/ransched/cmd/ransched/commands"

	// Import prometheus metrics to register constructors
	_ "github.com/marmos91/ransched/pkg/metrics/prometheus"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
