package download

import (
	"errors"
	"fmt"
)

// ErrMissingContentLength is returned when the server does not advertise the
// archive size and Options.AllowUnknownSize is not set. No file is created.
var ErrMissingContentLength = errors.New("download: response has no Content-Length")

// ErrInvalidOptions is returned before any network call when the options
// cannot be honored, e.g. a prune policy without ExtractArchive.
var ErrInvalidOptions = errors.New("download: invalid options")

// DownloadError is returned when the archive request fails. StatusCode is 0
// when no response was received.
type DownloadError struct {
	SessionID  string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading session %q: status %d", e.SessionID, e.StatusCode)
	}
	return fmt.Sprintf("downloading session %q: %v", e.SessionID, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ExtractError is returned when the archive cannot be unpacked. Entry is set
// when a single entry is at fault.
type ExtractError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extracting %s: entry %q: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
