package dump

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"threadweave/internal/thread"
)

// ErrThreadNotFound is returned by FindThread when nothing matches.
var ErrThreadNotFound = errors.New("thread not found")

const maxThreadLine = 1 << 30

// ThreadWriter writes one thread per line.
type ThreadWriter struct {
	bw    *bufio.Writer
	enc   *json.Encoder
	count int
}

func NewThreadWriter(w io.Writer) *ThreadWriter {
	bw := bufio.NewWriterSize(w, 1<<20)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &ThreadWriter{bw: bw, enc: enc}
}

// WriteThread encodes t followed by a newline.
func (w *ThreadWriter) WriteThread(t *thread.Thread) error {
	if err := w.enc.Encode(t); err != nil {
		return fmt.Errorf("writing thread %s: %w", t.LinkID, err)
	}
	w.count++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *ThreadWriter) Flush() error {
	return w.bw.Flush()
}

// Count is the number of threads written.
func (w *ThreadWriter) Count() int { return w.count }

// ThreadReader reads threads from JSONL, skipping blank lines.
type ThreadReader struct {
	sc    *bufio.Scanner
	line  int
	index int
}

func NewThreadReader(r io.Reader) *ThreadReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxThreadLine)
	return &ThreadReader{sc: sc}
}

// Next returns the next thread and its zero-based index among threads, or
// io.EOF at the end of input.
func (r *ThreadReader) Next() (*thread.Thread, int, error) {
	for r.sc.Scan() {
		r.line++
		b := bytes.TrimSpace(r.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var t thread.Thread
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, 0, fmt.Errorf("line %d: decoding thread: %w", r.line, err)
		}
		idx := r.index
		r.index++
		return &t, idx, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading threads: %w", err)
	}
	return nil, 0, io.EOF
}

// Each calls fn for every thread until fn returns false or input ends.
func (r *ThreadReader) Each(fn func(t *thread.Thread, index int) (bool, error)) error {
	for {
		t, idx, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		more, err := fn(t, idx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// FindThread returns the thread with the given link id, or when linkID is
// empty, the thread at index.
func FindThread(r io.Reader, linkID string, index int) (*thread.Thread, error) {
	if linkID == "" && index < 0 {
		return nil, fmt.Errorf("index %d: must be >= 0", index)
	}
	var found *thread.Thread
	err := NewThreadReader(r).Each(func(t *thread.Thread, idx int) (bool, error) {
		if (linkID != "" && t.LinkID == linkID) || (linkID == "" && idx == index) {
			found = t
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		if linkID != "" {
			return nil, fmt.Errorf("link_id %s: %w", linkID, ErrThreadNotFound)
		}
		return nil, fmt.Errorf("index %d out of range: %w", index, ErrThreadNotFound)
	}
	return found, nil
}
