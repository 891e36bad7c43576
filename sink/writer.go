// Package sink writes assembled entities to the output artifacts. One
// Writer owns all three artifact files for a run; the pipeline funnels
// every record through a single writer goroutine so no file sees
// interleaved writes.
package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/osintlab/WDX/errors"
	"github.com/osintlab/WDX/wikidata"
)

// Format names accepted in Options.Formats.
const (
	FormatJSONL   = "jsonl"
	FormatMsgpack = "msgpack"
	FormatCSV     = "csv"
)

// Artifact filenames within the output directory.
const (
	EntitiesJSONLFile   = "entities.jsonl"
	EntitiesMsgpackFile = "entities.msgpack"
	AliasesCSVFile      = "aliases.csv"
)

const defaultFlushEvery = 1000

// aliasHeader is the fixed first row of aliases.csv.
var aliasHeader = []string{"id", "language", "name", "is_primary"}

// Options selects which artifacts to produce and how often buffers are
// flushed to disk. Empty Formats means all of them.
type Options struct {
	Dir        string
	Formats    []string
	FlushEvery int
}

// Writer appends entities to the enabled artifacts. Not safe for
// concurrent use. Any write error is a sink I/O failure and fatal: a
// partially written artifact must not be silently passed off as complete.
type Writer struct {
	opts    Options
	logger  *zap.SugaredLogger
	written int64

	jsonlFile *os.File
	jsonlBuf  *bufio.Writer

	msgpackFile *os.File
	msgpackBuf  *bufio.Writer
	msgpackEnc  *msgpack.Encoder

	csvFile *os.File
	csvBuf  *bufio.Writer
	csvEnc  *csv.Writer
}

// NewWriter creates the output directory and opens the artifact files,
// truncating any previous run's output. The CSV header is written
// immediately so even an empty run produces a well-formed file.
func NewWriter(opts Options, logger *zap.SugaredLogger) (*Writer, error) {
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = defaultFlushEvery
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{FormatJSONL, FormatMsgpack, FormatCSV}
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.WrapSinkIO(err, "create output directory")
	}

	w := &Writer{opts: opts, logger: logger}
	for _, format := range opts.Formats {
		if err := w.openFormat(format); err != nil {
			w.closeFiles()
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) openFormat(format string) error {
	switch format {
	case FormatJSONL:
		f, err := os.Create(filepath.Join(w.opts.Dir, EntitiesJSONLFile))
		if err != nil {
			return errors.WrapSinkIO(err, "open jsonl sink")
		}
		w.jsonlFile = f
		w.jsonlBuf = bufio.NewWriter(f)

	case FormatMsgpack:
		f, err := os.Create(filepath.Join(w.opts.Dir, EntitiesMsgpackFile))
		if err != nil {
			return errors.WrapSinkIO(err, "open msgpack sink")
		}
		w.msgpackFile = f
		w.msgpackBuf = bufio.NewWriter(f)
		w.msgpackEnc = msgpack.NewEncoder(w.msgpackBuf)

	case FormatCSV:
		f, err := os.Create(filepath.Join(w.opts.Dir, AliasesCSVFile))
		if err != nil {
			return errors.WrapSinkIO(err, "open alias sink")
		}
		w.csvFile = f
		w.csvBuf = bufio.NewWriter(f)
		w.csvEnc = csv.NewWriter(w.csvBuf)
		if err := w.csvEnc.Write(aliasHeader); err != nil {
			return errors.WrapSinkIO(err, "write alias header")
		}

	default:
		return errors.Newf("unknown output format %q", format)
	}
	return nil
}

// Write appends one entity to every enabled artifact.
func (w *Writer) Write(e *wikidata.Entity) error {
	if w.jsonlBuf != nil {
		line, err := json.Marshal(e)
		if err != nil {
			return errors.WrapSinkIO(err, "encode entity")
		}
		if _, err := w.jsonlBuf.Write(append(line, '\n')); err != nil {
			return errors.WrapSinkIO(err, "write jsonl record")
		}
	}

	if w.msgpackEnc != nil {
		if err := w.msgpackEnc.Encode(e); err != nil {
			return errors.WrapSinkIO(err, "write msgpack record")
		}
	}

	if w.csvEnc != nil {
		for _, row := range e.AliasRows() {
			record := []string{row.ID, row.Language, row.Name, strconv.FormatBool(row.Primary)}
			if err := w.csvEnc.Write(record); err != nil {
				return errors.WrapSinkIO(err, "write alias row")
			}
		}
	}

	w.written++
	if w.written%int64(w.opts.FlushEvery) == 0 {
		if err := w.flush(); err != nil {
			return err
		}
		if w.logger != nil {
			w.logger.Debugw("Flushed sink buffers", "written", w.written)
		}
	}
	return nil
}

// Written returns the number of entities written so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) flush() error {
	if w.jsonlBuf != nil {
		if err := w.jsonlBuf.Flush(); err != nil {
			return errors.WrapSinkIO(err, "flush jsonl sink")
		}
	}
	if w.msgpackBuf != nil {
		if err := w.msgpackBuf.Flush(); err != nil {
			return errors.WrapSinkIO(err, "flush msgpack sink")
		}
	}
	if w.csvEnc != nil {
		w.csvEnc.Flush()
		if err := w.csvEnc.Error(); err != nil {
			return errors.WrapSinkIO(err, "flush alias sink")
		}
		if err := w.csvBuf.Flush(); err != nil {
			return errors.WrapSinkIO(err, "flush alias sink")
		}
	}
	return nil
}

// Close flushes all buffers and closes the artifact files. Must be called
// even after a write error so file handles are released.
func (w *Writer) Close() error {
	flushErr := w.flush()
	closeErr := w.closeFiles()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (w *Writer) closeFiles() error {
	var first error
	for _, f := range []*os.File{w.jsonlFile, w.msgpackFile, w.csvFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = errors.WrapSinkIO(err, "close sink")
		}
	}
	w.jsonlFile, w.msgpackFile, w.csvFile = nil, nil, nil
	return first
}
