// Package pipeline runs the staged extraction: one reader feeding a
// bounded block queue, a pool of classify/extract/resolve workers feeding a
// bounded entity queue, and a single sink writer. Memory stays bounded by
// the queue depths regardless of dump size.
package pipeline

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osintlab/WDX/dump"
	"github.com/osintlab/WDX/resolver"
	"github.com/osintlab/WDX/sink"
	"github.com/osintlab/WDX/wikidata"
)

const (
	defaultQueueDepth = 256

	memoryCheckInterval = 10 * time.Second
	memoryWarnPercent   = 90.0
)

// Options configures pipeline concurrency and reporting.
type Options struct {
	Workers     int // classify/extract/resolve workers (default: NumCPU)
	QueueDepth  int // capacity of the inter-stage queues
	ReportEvery int // progress log interval in blocks (0 = quiet)
}

// Pipeline wires the processing stages for one run. The caller owns the
// reader and writer lifetimes; Run only consumes and produces.
type Pipeline struct {
	opts       Options
	classifier *wikidata.Classifier
	extractor  *wikidata.Extractor
	resolver   *resolver.Resolver
	writer     *sink.Writer
	logger     *zap.SugaredLogger
}

// New assembles a pipeline from its stages.
func New(opts Options, classifier *wikidata.Classifier, extractor *wikidata.Extractor, res *resolver.Resolver, writer *sink.Writer, logger *zap.SugaredLogger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}
	return &Pipeline{
		opts:       opts,
		classifier: classifier,
		extractor:  extractor,
		resolver:   res,
		writer:     writer,
		logger:     logger,
	}
}

// Run drains the reader through the pipeline. It returns when the dump is
// exhausted, the context is cancelled, or a fatal error occurs. The report
// is always populated with the counters accumulated so far, including on
// error, so an aborted run still accounts for its partial output.
func (p *Pipeline) Run(ctx context.Context, reader *dump.Reader) (*Report, error) {
	report := newReport()
	stats := &Stats{}

	if p.logger != nil {
		p.logger.Infow("Starting extraction run",
			"run_id", report.RunID,
			"workers", p.opts.Workers,
			"queue_depth", p.opts.QueueDepth,
		)
	}

	g, ctx := errgroup.WithContext(ctx)

	blocks := make(chan *dump.Block, p.opts.QueueDepth)
	entities := make(chan *wikidata.Entity, p.opts.QueueDepth)

	go p.watchMemory(ctx)

	g.Go(func() error {
		defer close(blocks)
		return p.readStage(ctx, reader, blocks, stats)
	})

	var workers sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			return p.workStage(ctx, blocks, entities, stats)
		})
	}
	go func() {
		workers.Wait()
		close(entities)
	}()

	g.Go(func() error {
		return p.writeStage(ctx, entities, stats)
	})

	err := g.Wait()
	report.finish(stats)

	if p.logger != nil {
		p.logger.Infow("Extraction run finished",
			"run_id", report.RunID,
			"blocks_read", report.BlocksRead,
			"written", report.Written,
			"duration", report.Duration,
			"error", err,
		)
	}
	return report, err
}

// readStage pulls entity blocks off the dump and feeds the block queue.
// Corrupt input is fatal here: a malformed dump means every downstream
// number would be wrong.
func (p *Pipeline) readStage(ctx context.Context, reader *dump.Reader, blocks chan<- *dump.Block, stats *Stats) error {
	for {
		block, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		n := stats.BlocksRead.Add(1)
		if p.opts.ReportEvery > 0 && n%int64(p.opts.ReportEvery) == 0 && p.logger != nil {
			p.logger.Infow("Progress",
				"blocks_read", n,
				"accepted", stats.Accepted.Load(),
				"written", stats.Written.Load(),
			)
		}

		select {
		case blocks <- block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// workStage classifies, extracts and resolves blocks. Classification
// misses and extraction drops are counted, never fatal; only cache I/O
// aborts the run.
func (p *Pipeline) workStage(ctx context.Context, blocks <-chan *dump.Block, entities chan<- *wikidata.Entity, stats *Stats) error {
	for block := range blocks {
		kind, ok := p.classifier.Classify(block.Data)
		if !ok {
			stats.Rejected.Add(1)
			continue
		}
		stats.Accepted.Add(1)

		entity, warnings := p.extractor.Extract(block.Data, kind)
		stats.Warnings.Add(int64(len(warnings)))
		for _, w := range warnings {
			if p.logger != nil {
				p.logger.Debugw("Extraction warning",
					"entity_id", w.EntityID,
					"field", w.Field,
					"reason", w.Reason,
					"line", block.Line,
				)
			}
		}
		if entity == nil {
			stats.Dropped.Add(1)
			continue
		}
		if len(warnings) > 0 {
			stats.Flawed.Add(1)
		}

		out, err := p.resolver.Resolve(ctx, entity)
		stats.CacheHits.Add(int64(out.CacheHits))
		stats.Lookups.Add(int64(out.Lookups))
		stats.Unresolved.Add(int64(len(out.Unresolved)))
		if err != nil {
			return err
		}
		for _, failure := range out.Unresolved {
			if p.logger != nil {
				p.logger.Debugw("Resolution failure",
					"entity_id", failure.EntityID,
					"property_id", failure.PropertyID,
					"reason", failure.Reason,
				)
			}
		}

		select {
		case entities <- entity:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// writeStage is the single consumer of the entity queue. Sink errors are
// fatal; a shutdown lets it drain whatever the workers already queued.
func (p *Pipeline) writeStage(ctx context.Context, entities <-chan *wikidata.Entity, stats *Stats) error {
	for entity := range entities {
		if err := p.writer.Write(entity); err != nil {
			return err
		}
		stats.Written.Add(1)
	}
	return nil
}

// watchMemory logs a warning when system memory use crosses the threshold.
// Purely advisory: the queue bounds are what actually cap pipeline memory.
func (p *Pipeline) watchMemory(ctx context.Context) {
	if p.logger == nil {
		return
	}
	ticker := time.NewTicker(memoryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm, err := mem.VirtualMemory()
			if err != nil {
				continue
			}
			if vm.UsedPercent > memoryWarnPercent {
				p.logger.Warnw("System memory pressure",
					"used_percent", vm.UsedPercent,
				)
			}
		}
	}
}
