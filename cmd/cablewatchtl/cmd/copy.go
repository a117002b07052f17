package cmd

import "github.com/spf13/cobra"

var copyCmd = &cobra.Command{
	Use:   "copy <src> <dst>",
	Short: "Persist a new timeline with the same window as an existing one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		if err := ensureName(src, true); err != nil {
			return err
		}
		if err := ensureName(dst, false); err != nil {
			return err
		}
		tl, err := app.open(src, true)
		if err != nil {
			return err
		}
		copied, err := tl.Copy(dst)
		if err != nil {
			return err
		}
		return copied.Save()
	},
}
