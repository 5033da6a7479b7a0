package cursor

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by positional accessors called before Init.
var ErrNotInitialized = errors.New("cursor: not initialized")

// ErrInvalidStep is returned by Next and Prev for a step smaller than one.
var ErrInvalidStep = errors.New("cursor: step must be a positive integer")

// ErrInconsistentPagination marks a page response that does not cover the
// position it was fetched for.
var ErrInconsistentPagination = errors.New("inconsistent pagination")

// IndexOutOfRangeError is returned when a move would leave [0, Count).
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("cursor: index %d out of range [0, %d)", e.Index, e.Count)
}

// FetchError is returned when a page could not be fetched or the response was
// unusable. StatusCode is set when the server answered with a non-success
// status.
type FetchError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetching page %d: status %d: %v", e.Page, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching page %d: status %d", e.Page, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetching page %d failed", e.Page)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
