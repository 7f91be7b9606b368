package repo

import "fmt"

// ParseError is returned by ReadAll when the document exists and has content
// but is not a well-formed JSON array of the expected records.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreWriteError is returned when a collection cannot be serialized or
// persisted. The previous document is left untouched.
type StoreWriteError struct {
	Path string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
