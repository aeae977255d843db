package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"yangls/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "yangls",
	Short: "YANG linter and language server",
	Long:  `yangls checks YANG modules against a declarative rule set and serves the same diagnostics over LSP`,
}

func main() {
	// version for the automatic --version flag
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 1000, "maximum number of diagnostics to report")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
