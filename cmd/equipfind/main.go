// Package main provides the equipfind command line client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "equipfind",
		Short: "equipfind - find equipment in the building catalog",
		Long: `equipfind answers natural-language equipment searches such as
"imprimante hp etage 1" or "192.168.1.5".

Searches run in-process against a catalog database (--driver/--dsn) or a YAML
fixture (--fixture), or remotely against a running server (--server).`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")
	rootCmd.PersistentFlags().String("fixture", "", "YAML catalog fixture (instead of a database)")
	rootCmd.PersistentFlags().String("driver", "", "catalog driver: postgres, sqlite3 (overrides config)")
	rootCmd.PersistentFlags().String("dsn", "", "catalog DSN (overrides config)")
	rootCmd.PersistentFlags().String("server", "", "gRPC server address, e.g. localhost:9090 or auto")

	rootCmd.AddCommand(
		searchCmd(),
		suggestCmd(),
		filtersCmd(),
		importCmd(),
		eventsCmd(),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "equipfind %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
