package cmd

import "github.com/spf13/cobra"

var resetCmd = &cobra.Command{
	Use:   "reset <name>",
	Short: "Recompute a timeline's window from the current archive bounds",
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
		if err := tl.Reset(); err != nil {
			return err
		}
		return tl.Save()
	},
}
