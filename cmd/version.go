package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd shows build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version, build, and runtime information",
	Long: `Display detailed version information about the outpost binary.

Shows the release version, git commit, build date, and Go runtime version.
Build metadata is injected at release time via linker flags.

Examples:
  # Show version info
  outpost version`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("outpost CLI")
		cmd.Printf("Version:  %s\n", version)
		cmd.Printf("Commit:   %s\n", commit)
		cmd.Printf("Built:    %s\n", date)
		cmd.Printf("Runtime:  %s\n", runtime.Version())
	},
}
