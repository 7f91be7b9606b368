package repo

import (
	"context"
	"sync"
)

// Memory is an in-process Collection used by tests and by callers that do
// not need durability. ReadErr / WriteErr, when set, are returned by the
// corresponding operations to simulate store failures.
type Memory[T any] struct {
	mu    sync.Mutex
	items []T

	ReadErr  error
	WriteErr error
}

// NewMemory returns a collection seeded with a copy of items.
func NewMemory[T any](items ...T) *Memory[T] {
	return &Memory[T]{items: append([]T{}, items...)}
}

// ReadAll returns a copy of the current records.
func (m *Memory[T]) ReadAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return append([]T{}, m.items...), nil
}

// WriteAll replaces the records with a copy of items.
func (m *Memory[T]) WriteAll(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return &StoreWriteError{Path: "memory", Err: m.WriteErr}
	}
	m.items = append([]T{}, items...)
	return nil
}

// Update applies fn under the collection lock.
func (m *Memory[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return m.ReadErr
	}
	next, err := fn(append([]T{}, m.items...))
	if err != nil {
		return err
	}
	if m.WriteErr != nil {
		return &StoreWriteError{Path: "memory", Err: m.WriteErr}
	}
	m.items = append([]T{}, next...)
	return nil
}
