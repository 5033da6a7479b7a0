package client

import (
	"context"
	"fmt"
	"net/url"
)

// OpenArchive starts streaming the archive of a session. The returned
// Archive's Body must be closed by the caller.
func (c *Client) OpenArchive(ctx context.Context, sessionID string) (*Archive, error) {
	path := "/file/" + url.PathEscape(sessionID) + "/download"

	resp, err := c.do(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading session %q: %w", sessionID, err)
	}

	return &Archive{
		SessionID:   sessionID,
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
