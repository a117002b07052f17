package cmd

import "github.com/spf13/cobra"

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a persisted timeline",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := ensureName(name, true); err != nil {
			return err
		}
		tl, err := app.open(name, true)
		if err != nil {
			return err
		}
		return tl.Remove()
	},
}
