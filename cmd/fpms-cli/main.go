package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "fpms-cli",
		Short:         "Operator tools for the family registry reporting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(reportCmd(a))
	rootCmd.AddCommand(mappingCmd(a))
	rootCmd.AddCommand(resolveCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
