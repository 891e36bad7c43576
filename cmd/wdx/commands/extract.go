package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/osintlab/WDX/cache"
	"github.com/osintlab/WDX/config"
	"github.com/osintlab/WDX/db"
	"github.com/osintlab/WDX/display"
	"github.com/osintlab/WDX/dump"
	"github.com/osintlab/WDX/errors"
	"github.com/osintlab/WDX/internal/httpclient"
	"github.com/osintlab/WDX/logger"
	"github.com/osintlab/WDX/pipeline"
	"github.com/osintlab/WDX/resolver"
	"github.com/osintlab/WDX/sink"
	"github.com/osintlab/WDX/wikidata"
)

var (
	extractConfigFlag    string
	extractOutputFlag    string
	extractKindsFlag     []string
	extractLanguagesFlag []string
	extractEnrichFlag    []string
	extractCacheFlag     string
	extractWorkersFlag   int
	extractImagesFlag    bool
)

// ExtractCmd represents the extract command
var ExtractCmd = &cobra.Command{
	Use:   "extract <dump-file>",
	Short: "Run the extraction pipeline over a Wikidata dump",
	Long: `Stream a Wikidata JSON dump (plain or gzipped) through the extraction
pipeline and write the configured artifacts.

The dump is never loaded into memory: entities stream through bounded
queues from the reader to the sink writer. Interrupting the run with
Ctrl+C drains in-flight entities before exiting, so the artifacts stay
well-formed.

Examples:
  wdx extract latest-all.json.gz
  wdx extract dump.json -o artifacts/ -k person,organization -l en,de
  wdx extract dump.json --enrich person --fetch-images`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	ExtractCmd.Flags().StringVarP(&extractConfigFlag, "config", "c", "", "Path to a wdx.toml config file")
	ExtractCmd.Flags().StringVarP(&extractOutputFlag, "output", "o", "", "Output directory for artifacts")
	ExtractCmd.Flags().StringSliceVarP(&extractKindsFlag, "kinds", "k", nil, "Entity kinds to extract, in precedence order")
	ExtractCmd.Flags().StringSliceVarP(&extractLanguagesFlag, "languages", "l", nil, "Languages to keep for labels, descriptions and aliases")
	ExtractCmd.Flags().StringSliceVar(&extractEnrichFlag, "enrich", nil, "Kinds whose claims go through external lookups")
	ExtractCmd.Flags().StringVar(&extractCacheFlag, "cache", "", "Path to the resolution cache database")
	ExtractCmd.Flags().IntVar(&extractWorkersFlag, "workers", 0, "Number of extraction workers (default: CPU count)")
	ExtractCmd.Flags().BoolVar(&extractImagesFlag, "fetch-images", false, "Download and cache images for enriched kinds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadExtractConfig()
	if err != nil {
		return err
	}

	jsonOutput := display.ShouldOutputJSON(cmd)
	if !jsonOutput {
		pterm.DefaultHeader.WithFullWidth().Printf("WDX - Wikidata Extraction")
		pterm.Println()
		pterm.Info.Printf("Dump: %s\n", args[0])
		pterm.Info.Printf("Kinds: %s\n", strings.Join(cfg.Kinds, ", "))
		pterm.Info.Printf("Languages: %s\n", strings.Join(cfg.Languages, ", "))
		pterm.Info.Printf("Output: %s\n", cfg.Output.Dir)
		pterm.Println()
	}

	reader, err := dump.Open(args[0], cfg.Pipeline.MaxBlockMB<<20)
	if err != nil {
		return err
	}
	defer reader.Close()

	database, err := db.OpenWithMigrations(cfg.Cache.Path, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open resolution cache")
	}
	defer database.Close()
	store := cache.NewStore(database, logger.Logger)

	client := httpclient.New(time.Duration(cfg.Lookup.TimeoutSeconds)*time.Second, httpclient.Options{})
	res := resolver.New(resolver.Options{
		Endpoint:      cfg.Lookup.Endpoint,
		Retries:       cfg.Lookup.Retries,
		RatePerSecond: cfg.Lookup.RatePerSecond,
		FetchImages:   cfg.Lookup.FetchImages,
		ImageWidth:    cfg.Lookup.ImageWidth,
		Language:      cfg.Languages[0],
		EnrichKinds:   cfg.EnrichKindList(),
	}, store, client, logger.Logger)

	writer, err := sink.NewWriter(sink.Options{
		Dir:        cfg.Output.Dir,
		Formats:    cfg.Output.Formats,
		FlushEvery: cfg.Pipeline.FlushEvery,
	}, logger.Logger)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Options{
		Workers:     cfg.Pipeline.Workers,
		QueueDepth:  cfg.Pipeline.QueueDepth,
		ReportEvery: cfg.Pipeline.ReportEvery,
	},
		wikidata.NewClassifier(cfg.KindList()),
		wikidata.NewExtractor(cfg.Languages, nil),
		res,
		writer,
		logger.Logger,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var spinner *pterm.SpinnerPrinter
	if !jsonOutput {
		spinner, _ = pterm.DefaultSpinner.Start("Extracting entities...")
	}

	report, runErr := p.Run(ctx, reader)
	closeErr := writer.Close()

	if spinner != nil {
		if runErr != nil {
			spinner.Fail("Extraction failed")
		} else {
			spinner.Success("Extraction complete")
		}
	}

	if jsonOutput {
		if err := display.OutputJSON(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if err := finishRun(runErr, closeErr); err != nil {
		return err
	}
	if runErr != nil {
		pterm.Warning.Println("Run interrupted; partial artifacts were flushed")
	}
	return nil
}

// finishRun merges the pipeline outcome with the sink close outcome. An
// interrupt alone is a clean partial run, but only if the final flush
// succeeded: a failed flush must surface even on the interrupted and
// fatal paths, never be swallowed by them.
func finishRun(runErr, closeErr error) error {
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return errors.Join(runErr, closeErr)
	}
	return closeErr
}

func loadExtractConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if extractConfigFlag != "" {
		cfg, err = config.LoadFromFile(extractConfigFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if extractOutputFlag != "" {
		cfg.Output.Dir = extractOutputFlag
	}
	if len(extractKindsFlag) > 0 {
		cfg.Kinds = extractKindsFlag
	}
	if len(extractLanguagesFlag) > 0 {
		cfg.Languages = extractLanguagesFlag
	}
	if len(extractEnrichFlag) > 0 {
		cfg.EnrichKinds = extractEnrichFlag
	}
	if extractCacheFlag != "" {
		cfg.Cache.Path = extractCacheFlag
	}
	if extractWorkersFlag > 0 {
		cfg.Pipeline.Workers = extractWorkersFlag
	}
	if extractImagesFlag {
		cfg.Lookup.FetchImages = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printReport(report *pipeline.Report) {
	pterm.Println()
	pterm.Printf("Run:         %s\n", report.RunID)
	pterm.Printf("Duration:    %s\n", report.Duration.Round(time.Millisecond))
	pterm.Printf("Read:        %d blocks\n", report.BlocksRead)
	pterm.Printf("Accepted:    %d\n", report.Accepted)
	pterm.Printf("Rejected:    %d\n", report.Rejected)
	pterm.Printf("Dropped:     %d\n", report.Dropped)
	pterm.Printf("Warnings:    %d (%d entities affected)\n", report.Warnings, report.Flawed)
	pterm.Printf("Cache hits:  %d\n", report.CacheHits)
	pterm.Printf("Lookups:     %d\n", report.Lookups)
	pterm.Printf("Unresolved:  %d\n", report.Unresolved)
	pterm.Printf("Written:     %d entities\n", report.Written)
}
