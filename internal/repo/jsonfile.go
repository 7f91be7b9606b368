// Package repo implements the persistence layer: flat JSON documents that each
// hold one whole collection, read and rewritten wholesale on every operation.
//
// Two documents back the application:
//   - the verse collection (pre-seeded, read-only at runtime)
//   - the prayer-request log (append via read-modify-write)
//
// Nothing is cached between calls; every operation re-reads the file so it
// never observes a state older than its own last write.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Collection is the store contract consumed by the services.
//
// Implementations must return an empty (non-nil) slice for an absent or
// blank document and must make Update atomic with respect to other Update
// calls on the same collection.
type Collection[T any] interface {
	// ReadAll returns every record in document order.
	ReadAll(ctx context.Context) ([]T, error)
	// WriteAll replaces the whole document with items.
	WriteAll(ctx context.Context, items []T) error
	// Update applies fn to the current records and persists the result.
	Update(ctx context.Context, fn func([]T) ([]T, error)) error
}

// pathLocks serializes read-modify-write cycles per file within the process,
// shared by every JSONFile opened on the same path.
var pathLocks sync.Map // map[string]*sync.Mutex

func lockFor(path string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// JSONFile is a Collection persisted as one indented JSON array on disk.
type JSONFile[T any] struct {
	path string
	mu   *sync.Mutex
}

// NewJSONFile binds a collection to path. The file does not need to exist;
// it is created on the first write. The parent directory must exist.
func NewJSONFile[T any](path string) *JSONFile[T] {
	clean := filepath.Clean(path)
	if abs, err := filepath.Abs(clean); err == nil {
		clean = abs
	}
	return &JSONFile[T]{path: clean, mu: lockFor(clean)}
}

// Path returns the absolute path of the backing document.
func (f *JSONFile[T]) Path() string { return f.path }

// ReadAll loads the document. An absent file or one holding only whitespace
// (or a JSON null) yields an empty slice; any other malformed content yields
// a *ParseError.
func (f *JSONFile[T]) ReadAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.read()
}

func (f *JSONFile[T]) read() ([]T, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ParseError{Path: f.path, Err: err}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// WriteAll serializes items and replaces the document. The new content is
// written to a temporary sibling and renamed into place, so readers see
// either the old or the new document, never a partial one.
func (f *JSONFile[T]) WriteAll(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(items)
}

func (f *JSONFile[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return &StoreWriteError{Path: f.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &StoreWriteError{Path: f.path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &StoreWriteError{Path: f.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &StoreWriteError{Path: f.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StoreWriteError{Path: f.path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &StoreWriteError{Path: f.path, Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return &StoreWriteError{Path: f.path, Err: err}
	}
	committed = true
	return nil
}

// Update runs a read-modify-write cycle while holding the per-path lock, so
// concurrent appends from the same process cannot lose each other's records.
// If fn returns an error nothing is written.
func (f *JSONFile[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return f.write(next)
}
