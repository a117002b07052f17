package cmd

import "github.com/spf13/cobra"

var advanceCmd = &cobra.Command{
	Use:   "advance <name>",
	Short: "Slide a timeline's window forward by its own duration",
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
		if err := tl.Advance(0); err != nil {
			return err
		}
		return tl.Save()
	},
}
