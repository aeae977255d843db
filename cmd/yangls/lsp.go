package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yangls/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the YANG language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().String("rules", "", "rule file overriding manifest discovery")
	lspCmd.Flags().String("schema", "", "rule schema overriding manifest discovery")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	rulesPath, err := cmd.Flags().GetString("rules")
	if err != nil {
		return err
	}
	schemaPath, err := cmd.Flags().GetString("schema")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		MaxDiagnostics: maxDiagnostics,
		RulesPath:      rulesPath,
		SchemaPath:     schemaPath,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}
