// Package cmd implements the cablewatchtl Timeline CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/config"
	"github.com/loghaan/cablewatch/internal/segment"
	"github.com/loghaan/cablewatch/internal/timeline"
)

var (
	configPath string
	app        *appContext
)

// appContext bundles the resolved paths every subcommand needs.
type appContext struct {
	archive      segment.Archive
	timelinesDir string
}

func (a *appContext) open(name string, load bool) (*timeline.Timeline, error) {
	return timeline.Open(a.archive, a.timelinesDir, name, nil, nil, load)
}

var rootCmd = &cobra.Command{
	Use:           "cablewatchtl",
	Short:         "Operate on cablewatch Timelines",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		dataDir, err := cfg.Get("INGEST_DATADIR")
		if err != nil {
			return err
		}
		app = &appContext{
			archive:      segment.New(dataDir),
			timelinesDir: dataDir + "/timelines",
		}
		return nil
	},
}

// Execute runs the CLI, returning a non-nil error for argument or
// validation failures (mapped to exit code 2 by main).
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to cablewatch.yaml (default: built-in defaults)")
	rootCmd.AddCommand(createCmd, advanceCmd, resetCmd, copyCmd, editCmd, removeCmd, listCmd, slicesCmd, concatCmd)
}

// ensureName enforces the existence/non-existence precondition the
// original tool calls ensureName, before any mutation is attempted.
func ensureName(name string, mustExist bool) error {
	if err := timeline.ValidateName(name); err != nil {
		return err
	}
	if name == timeline.Glob {
		if mustExist {
			return nil
		}
		return fmt.Errorf("timeline %q already exists", name)
	}

	names, err := timeline.ListNames(app.timelinesDir)
	if err != nil {
		return err
	}
	exists := false
	for _, n := range names {
		if n == name {
			exists = true
			break
		}
	}
	if exists && !mustExist {
		return fmt.Errorf("timeline %q already exists", name)
	}
	if !exists && mustExist {
		return fmt.Errorf("timeline %q does not exist", name)
	}
	return nil
}
