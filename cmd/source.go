package cmd

import (
	"errors"
	"io"

	"threadweave/internal/db"
	"threadweave/internal/dump"
	"threadweave/internal/thread"
)

var errStopIteration = errors.New("stop iteration")

// threadSource iterates reconstructed threads from a JSONL file or the store.
type threadSource struct {
	name  string
	file  io.Reader // set for files
	store *db.DB    // set for the store
	each  func(fn func(t *thread.Thread, index int) (bool, error)) error
	close func() error
}

// openThreads opens path as a threads JSONL file ("-" is stdin), or the
// store when path is empty.
func openThreads(path string) (*threadSource, error) {
	if path != "" {
		f, err := dump.Open(path)
		if err != nil {
			return nil, err
		}
		return &threadSource{
			name:  path,
			file:  f,
			each:  dump.NewThreadReader(f).Each,
			close: f.Close,
		}, nil
	}

	d, err := OpenDatabase()
	if err != nil {
		return nil, err
	}
	return &threadSource{
		name:  d.Path,
		store: d,
		each: func(fn func(*thread.Thread, int) (bool, error)) error {
			index := 0
			err := d.EachThread(func(t *thread.Thread) error {
				more, err := fn(t, index)
				index++
				if err != nil {
					return err
				}
				if !more {
					return errStopIteration
				}
				return nil
			})
			if errors.Is(err, errStopIteration) {
				return nil
			}
			return err
		},
		close: d.Close,
	}, nil
}

// find returns one thread by link id, or by index when linkID is empty.
func (s *threadSource) find(linkID string, index int) (*thread.Thread, error) {
	if s.store == nil {
		return dump.FindThread(s.file, linkID, index)
	}
	if linkID != "" {
		return s.store.GetThread(linkID)
	}
	return s.store.ThreadAt(index)
}
