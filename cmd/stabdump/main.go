// Package main provides the stabdump binary: a small inspector that
// extracts symbols, types, and line tables from object files carrying
// STAB debug information.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/stabs/internal/cli/dump"
	"github.com/coral-mesh/stabs/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "stabdump",
		Short:         "stabdump - inspect STAB debug information in object files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(dump.NewSymbolsCmd())
	rootCmd.AddCommand(dump.NewTypesCmd())
	rootCmd.AddCommand(dump.NewLinesCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("stabdump version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
