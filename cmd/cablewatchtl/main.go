// Command cablewatchtl is the operator CLI over persisted Timelines.
package main

import (
	"fmt"
	"os"

	"github.com/loghaan/cablewatch/cmd/cablewatchtl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
