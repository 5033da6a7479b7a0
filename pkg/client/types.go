package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/filter"
)

// SessionFile is one row of a device's session file listing.
type SessionFile struct {
	ID          string `json:"id,omitempty"`
	SessionName string `json:"session_name"`
	DeviceName  string `json:"device_name,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Size        int64  `json:"size,omitempty"`

	// Fields holds every field of the record as sent by the server,
	// including the ones mapped above.
	Fields map[string]any `json:"-"`
}

// SessionID returns the identifier used to download the session archive.
func (f SessionFile) SessionID() string {
	if f.SessionName != "" {
		return f.SessionName
	}
	return f.ID
}

type sessionFileAlias SessionFile

// UnmarshalJSON decodes the known fields and keeps the full record in Fields.
func (f *SessionFile) UnmarshalJSON(data []byte) error {
	var known sessionFileAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*f = SessionFile(known)
	f.Fields = fields
	return nil
}

// MarshalJSON encodes the full record when it was decoded from the server,
// the known fields otherwise.
func (f SessionFile) MarshalJSON() ([]byte, error) {
	if f.Fields != nil {
		return json.Marshal(f.Fields)
	}
	return json.Marshal(sessionFileAlias(f))
}

// FilesQuery is the paging and filtering payload of a listing request.
type FilesQuery struct {
	Skip   int               `json:"skip"`
	Take   int               `json:"take"`
	Filter filter.Collection `json:"filter"`
}

// FilesPage is one page of a device's session files.
type FilesPage struct {
	Results    []SessionFile     `json:"results"`
	Pagination cursor.Pagination `json:"pagination"`
}

// filesEnvelope describes the wire shape a listing response must have.
type filesEnvelope struct {
	Results    []map[string]any  `json:"results"`
	Pagination cursor.Pagination `json:"pagination"`
}

// Archive is an open session archive stream. The caller must close Body.
type Archive struct {
	SessionID   string
	Body        io.ReadCloser
	Size        int64 // -1 when the server did not advertise a length
	ContentType string
}

// ErrCredentialClosed is returned by a closed Authenticator.
var ErrCredentialClosed = errors.New("credential has been invalidated")

// AuthError is returned when the service rejects the credentials, either at
// login or on an authenticated request.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xemway authorization denied (%d)", e.StatusCode)
	}
	return fmt.Sprintf("xemway authorization denied (%d): %s", e.StatusCode, e.Message)
}

// APIError represents an error response from the Xemway API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xemway API error %d: %s", e.StatusCode, e.Message)
}

// errorResponse is the JSON structure for API errors.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// StatusCode returns the HTTP status carried by an APIError or AuthError in
// err's chain, 0 otherwise.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}
