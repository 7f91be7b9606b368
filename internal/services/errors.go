// Package services defines the business logic for verse dispensing, prayer
// request logging, and CSV export. This file centralizes the service-level
// error values so that handlers can map them to responses consistently.
//
// Store failures are not redefined here: *repo.ParseError and
// *repo.StoreWriteError propagate wrapped, and callers match them with
// errors.As.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCollection is returned by Dispense when the verse collection
	// holds no entries.
	ErrEmptyCollection = errors.New("verse collection is empty")
)

// ExportError is returned when the request log cannot be read or serialized
// as CSV. No partial document accompanies it.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string { return fmt.Sprintf("export csv: %v", e.Err) }

func (e *ExportError) Unwrap() error { return e.Err }
