// main is the entry point for the outpost CLI.
package main

import (
	"fmt"
	"os"

	"github.com/outpostlabs/outpost/cmd"
	"github.com/outpostlabs/outpost/internal/iostore"
)

func main() {
	err := cmd.Execute()
	iostore.CloseStores()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
