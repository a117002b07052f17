package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/timeline"
)

var slicesCmd = &cobra.Command{
	Use:   "slices <name>",
	Aliases: []string{"sl"},
	Short: "List a timeline's contiguous segment runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := ensureName(name, true); err != nil {
			return err
		}
		tl, err := app.open(name, true)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLICE/SEGMENT\tINPOINT\tOUTPOINT\tEFFECTIVE_DURATION")
		for i, sl := range timeline.Slices(tl.Segments()) {
			fmt.Fprintf(w, "slice #%d\t\t\t%s\n", i, sl.EffectiveDuration())
			for _, seg := range sl.Segments {
				in, out := "", ""
				if seg.Inpoint != nil {
					in = seg.Inpoint.String()
				}
				if seg.Outpoint != nil {
					out = seg.Outpoint.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", seg.Basename, in, out, seg.EffectiveDuration())
			}
		}
		return w.Flush()
	},
}
