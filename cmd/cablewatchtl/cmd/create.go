package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/timeline"
)

var createDuration string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new named timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := ensureName(name, false); err != nil {
			return err
		}
		duration, err := time.ParseDuration(createDuration)
		if err != nil {
			return err
		}
		begin := time.Now()
		tl, err := timeline.Open(app.archive, app.timelinesDir, name, &begin, &duration, false)
		if err != nil {
			return err
		}
		return tl.Save()
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDuration, "duration", "d", "0s", "timeline duration (Go duration syntax, e.g. 3h)")
}
