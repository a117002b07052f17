package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/timeline"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every persisted timeline",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := timeline.ListNames(app.timelinesDir)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tBEGIN\tEND\tDURATION\tNUM_HOLES")
		for _, name := range names {
			tl, err := app.open(name, true)
			if err != nil {
				return err
			}
			duration := "0s"
			if tl.Duration > 0 {
				duration = tl.Duration.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				name, tl.Begin.Format(timeLayout), tl.End().Format(timeLayout), duration, tl.NumberOfHoles())
		}
		return w.Flush()
	},
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
