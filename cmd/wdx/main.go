package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osintlab/WDX/cmd/wdx/commands"
	"github.com/osintlab/WDX/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wdx",
	Short: "WDX - Wikidata dump extraction pipeline",
	Long: `WDX - Streaming extraction of typed entities from Wikidata JSON dumps.

WDX reads a full Wikidata dump, keeps the entity kinds you configure
(people, organizations, locations, events, creative works), resolves
their claims through a persistent cache, and writes JSONL, MessagePack
and alias CSV artifacts.

Available commands:
  extract - Run the extraction pipeline over a dump file
  cache   - Inspect the persistent resolution cache
  config  - Show the effective configuration
  version - Show version information

Examples:
  wdx extract latest-all.json.gz        # Extract with wdx.toml settings
  wdx extract dump.json -o out/ -k person,location
  wdx cache stats                       # Show resolution cache contents
  wdx config show                       # Print the effective configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Root().PersistentFlags().GetBool("json")
		verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output machine-readable JSON instead of formatted text")

	rootCmd.AddCommand(commands.ExtractCmd)
	rootCmd.AddCommand(commands.CacheCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
