// Package dump streams raw entity blocks out of a Wikidata-style JSON dump
// without materializing the file. The dump is one huge JSON array with one
// entity object per line:
//
//	[
//	{"id":"Q1","type":"item",...},
//	{"id":"Q2","type":"item",...},
//	]
//
// The reader owns the stream position. It advances strictly forward and can
// only be restarted from the beginning by opening a new reader.
package dump

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/osintlab/WDX/errors"
)

// DefaultMaxBlockBytes bounds a single entity block. Wikidata entities with
// thousands of statements stay well under 16MB; anything larger is treated
// as structural corruption rather than buffered without limit.
const DefaultMaxBlockBytes = 16 << 20

// Block is one not-yet-validated entity record as read from the dump.
type Block struct {
	// Line is the 1-based line number in the dump, for error reporting.
	Line int64
	// Data is the raw JSON object, trailing comma stripped. The slice is
	// owned by the receiver; the reader does not reuse it.
	Data []byte
}

// Reader produces a lazy sequence of blocks from an entity dump.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	gz      *gzip.Reader
	line    int64
}

// Open opens a dump file for streaming. Files ending in .gz are
// decompressed transparently.
func Open(path string, maxBlockBytes int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dump %s", path)
	}

	var src io.Reader = f
	var gz *gzip.Reader
	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.WrapCorruptInput(err, "open gzip stream")
		}
		src = gz
	}

	r := New(src, maxBlockBytes)
	r.closer = f
	r.gz = gz
	return r, nil
}

// New wraps an already-open stream. Used by Open and by tests.
func New(src io.Reader, maxBlockBytes int) *Reader {
	if maxBlockBytes <= 0 {
		maxBlockBytes = DefaultMaxBlockBytes
	}
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64<<10), maxBlockBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next entity block, or io.EOF at end of stream. A
// malformed line fails the whole run with a corrupt-input error: the dump is
// assumed to be a single well-formed sequence, so there is nothing useful to
// recover past a structural break.
func (r *Reader) Next() (*Block, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())

		// Array markers and separator-only lines between entities.
		if len(raw) == 0 || bytes.Equal(raw, []byte("[")) || bytes.Equal(raw, []byte("]")) || bytes.Equal(raw, []byte(",")) {
			continue
		}

		raw = bytes.TrimSuffix(raw, []byte(","))
		if len(raw) == 0 || raw[0] != '{' || raw[len(raw)-1] != '}' {
			return nil, errors.NewCorruptInputf("line %d is not an entity object", r.line)
		}

		// The scanner reuses its buffer; blocks outlive the next Scan call.
		data := make([]byte, len(raw))
		copy(data, raw)
		return &Block{Line: r.line, Data: data}, nil
	}

	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, errors.NewCorruptInputf("entity block at line %d exceeds maximum size", r.line+1)
		}
		return nil, errors.WrapCorruptInput(err, "reading dump stream")
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far, including markers.
func (r *Reader) Line() int64 {
	return r.line
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
