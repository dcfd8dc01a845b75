// Package cli wires the samply command surface: serve, stop, and the
// query subcommands that talk to a running server over HTTP.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mbbill/samply-for-ai/internal/cli/query"
	"github.com/mbbill/samply-for-ai/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "samply",
	Short: "Post-process a sampling profile: hotspots, call graphs, disassembly",
	Long: `samply serves a decoded sampling profile over a local HTTP API and
offers hotspot, caller/callee, summary, disassembly, and drilldown queries
against it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(query.NewQueryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("samply version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
