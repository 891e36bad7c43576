package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/osintlab/WDX/cache"
	"github.com/osintlab/WDX/config"
	"github.com/osintlab/WDX/db"
	"github.com/osintlab/WDX/display"
	"github.com/osintlab/WDX/errors"
	"github.com/osintlab/WDX/logger"
)

// CacheCmd represents the cache command
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the persistent resolution cache",
	Long: `Inspect the SQLite cache that memoizes external property resolutions.

Examples:
  wdx cache stats               # Entry counts and resolution time range
  wdx cache get Q183 label      # Show one cached resolution`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show resolution cache statistics",
	RunE:  runCacheStats,
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <entity-id> <property-id>",
	Short: "Show one cached resolution",
	Args:  cobra.ExactArgs(2),
	RunE:  runCacheGet,
}

var cachePathFlag string

func init() {
	CacheCmd.PersistentFlags().StringVar(&cachePathFlag, "cache", "", "Path to the resolution cache database")
	CacheCmd.AddCommand(cacheStatsCmd)
	CacheCmd.AddCommand(cacheGetCmd)
}

func openCacheStore() (*cache.Store, func(), error) {
	path := cachePathFlag
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Cache.Path
	}

	database, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open resolution cache")
	}
	return cache.NewStore(database, logger.Logger), func() { database.Close() }, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openCacheStore()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(stats)
	}

	pterm.Printf("Entries:  %d\n", stats.Entries)
	pterm.Printf("Entities: %d\n", stats.Entities)
	if stats.Oldest != nil {
		pterm.Printf("Oldest:   %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
		pterm.Printf("Newest:   %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openCacheStore()
	if err != nil {
		return err
	}
	defer cleanup()

	entry, err := store.Lookup(args[0], args[1])
	if err != nil {
		return err
	}
	if entry == nil {
		pterm.Warning.Printf("No cached resolution for (%s, %s)\n", args[0], args[1])
		return nil
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(entry)
	}

	pterm.Printf("Entity:      %s\n", entry.EntityID)
	pterm.Printf("Property:    %s\n", entry.PropertyID)
	pterm.Printf("Value:       %s\n", entry.Value)
	pterm.Printf("Resolved at: %s\n", entry.ResolvedAt.Format("2006-01-02 15:04:05"))
	return nil
}
