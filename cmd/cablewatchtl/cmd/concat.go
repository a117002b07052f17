package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/timeline"
)

var concatSliceIndex int

var concatCmd = &cobra.Command{
	Use:   "concat <name>",
	Short: "Print the ffmpeg concat manifest body for one slice",
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

		slices := timeline.Slices(tl.Segments())
		if concatSliceIndex < 0 || concatSliceIndex >= len(slices) {
			return fmt.Errorf("slice index %d out of range [0,%d)", concatSliceIndex, len(slices))
		}

		dir, err := timeline.AbsManifestDir(app.archive.Dir)
		if err != nil {
			return err
		}
		path, err := timeline.ConcatManifest(dir, slices[concatSliceIndex], true)
		if err != nil {
			return err
		}
		defer os.Remove(path)

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	concatCmd.Flags().IntVarP(&concatSliceIndex, "slice-index", "s", 0, "slice index to render")
}
