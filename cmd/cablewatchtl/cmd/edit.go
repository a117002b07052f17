package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loghaan/cablewatch/internal/timeline"
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Open a timeline's JSON file in $EDITOR, replacing this process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := timeline.ValidateName(name); err != nil {
			return err
		}
		tl, err := app.open(name, true)
		if err != nil {
			return err
		}
		if err := tl.Save(); err != nil {
			return err
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			return fmt.Errorf("EDITOR is not set")
		}
		editorPath, err := exec.LookPath(editor)
		if err != nil {
			return fmt.Errorf("edit: locate $EDITOR (%q): %w", editor, err)
		}

		argv := []string{editorPath, tl.JSONPath()}
		return syscall.Exec(editorPath, argv, os.Environ())
	},
}
