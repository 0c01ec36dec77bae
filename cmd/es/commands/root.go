package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "es",
	Short: "Edgestack - dependency-aware issue tracker for agent workflows",
	Long: `Edgestack is a dependency-aware issue tracker built for multi-agent
software workflows.

Issues live in a project-scoped Redis store with blocking dependencies,
lock leases for agent coordination, and two-way GitHub Issues sync.
'es ready' surfaces unblocked, unlocked work so agents always know what
to pick up next.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
