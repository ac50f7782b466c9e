// Package dump opens comment dumps and reads and writes thread JSONL files.
package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdio is the path that stands for stdin or stdout.
const Stdio = "-"

// zstdMaxWindow accepts frames written with --long=31, which monthly
// comment archives use.
const zstdMaxWindow = 1 << 31

// Compression identifies a stream codec by file extension.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionFor picks the codec from the path extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	default:
		return None
	}
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, decompressing .gz and .zst transparently.
// "-" reads stdin.
func Open(path string) (io.ReadCloser, error) {
	var f *os.File
	if path == "" || path == Stdio {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
	}
	rc, err := NewReader(f, CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return rc, nil
}

// NewReader wraps r with the decoder for c. Closing the result also closes r
// when r is an io.Closer, except for stdin.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	var closers []io.Closer
	var out io.Reader = r
	switch c {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("reading gzip header: %w", err)
		}
		out = gz
		closers = append(closers, gz)
	case Zstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderMaxWindow(zstdMaxWindow))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		out = dec
		closers = append(closers, dec.IOReadCloser())
	}
	if cl, ok := r.(io.Closer); ok && cl != io.Closer(os.Stdin) {
		closers = append(closers, cl)
	}
	return &readCloser{Reader: out, closers: closers}, nil
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Create opens path for writing, compressing by extension. "-" writes to
// stdout, which is never closed.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == Stdio {
		return &writeCloser{Writer: os.Stdout, closers: []io.Closer{nopCloser{}}}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}

	switch CompressionFor(path) {
	case Gzip:
		gz := gzip.NewWriter(f)
		return &writeCloser{Writer: gz, closers: []io.Closer{gz, f}}, nil
	case Zstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return &writeCloser{Writer: enc, closers: []io.Closer{enc, f}}, nil
	default:
		return f, nil
	}
}
