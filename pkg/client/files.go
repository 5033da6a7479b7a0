package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/xemway/xemway-files/internal/schema"
	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/filter"
)

// filesValidator is compiled once from the listing envelope type.
var filesValidator = sync.OnceValues(func() (*schema.Validator, error) {
	return schema.ForType(&filesEnvelope{})
})

// ListDeviceFiles retrieves one window of a device's session files.
func (c *Client) ListDeviceFiles(ctx context.Context, device string, q FilesQuery) (*FilesPage, error) {
	path := "/api/files/device/" + url.PathEscape(device)

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encoding filtering: %w", err)
	}
	query := url.Values{"filtering": []string{string(payload)}}

	v, err := filesValidator()
	if err != nil {
		return nil, fmt.Errorf("building response schema: %w", err)
	}

	slog.Info("looking for device session files",
		slog.String("device", device),
		slog.Int("skip", q.Skip),
		slog.Int("take", q.Take),
	)

	var page FilesPage
	if err := c.get(ctx, path, query, v, &page); err != nil {
		return nil, fmt.Errorf("listing files for device %q: %w", device, err)
	}
	return &page, nil
}

// DeviceFileSource is the PageFetcher binding a cursor to one device's
// session file listing.
type DeviceFileSource struct {
	client *Client
	device string
}

// DeviceFiles returns the page source for device.
func (c *Client) DeviceFiles(device string) *DeviceFileSource {
	return &DeviceFileSource{client: c, device: device}
}

// DeviceFileCursor returns an uninitialized cursor over device's session
// files. Call Init before reading from it.
func (c *Client) DeviceFileCursor(device string, opts ...cursor.Option) *cursor.Cursor[SessionFile] {
	return cursor.New[SessionFile](c.DeviceFiles(device), opts...)
}

// Device returns the bound device name.
func (s *DeviceFileSource) Device() string {
	return s.device
}

// FetchPage implements cursor.PageFetcher. Failures are returned as
// *cursor.FetchError carrying the HTTP status when there is one; an
// authorization failure stays reachable as *AuthError.
func (s *DeviceFileSource) FetchPage(ctx context.Context, req cursor.PageRequest) (*cursor.Page[SessionFile], error) {
	q := FilesQuery{
		Skip:   req.Skip(),
		Take:   req.PageSize,
		Filter: filter.NewCollection(filter.LogicAnd, req.Filters()...),
	}

	page, err := s.client.ListDeviceFiles(ctx, s.device, q)
	if err != nil {
		fetchErr := &cursor.FetchError{Page: req.Page, StatusCode: StatusCode(err), Err: err}
		var authErr *AuthError
		if errors.As(err, &authErr) {
			slog.Error("could not retrieve session files: authorization denied",
				slog.String("device", s.device),
				slog.Int("status", authErr.StatusCode),
			)
		} else if fetchErr.StatusCode != 0 {
			slog.Error("could not retrieve session files",
				slog.String("device", s.device),
				slog.Int("status", fetchErr.StatusCode),
			)
		}
		return nil, fetchErr
	}

	return &cursor.Page[SessionFile]{
		Items:      page.Results,
		Pagination: page.Pagination,
	}, nil
}
