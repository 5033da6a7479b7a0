// Package client provides a Go SDK for the Xemway device-data API.
//
// The API exposes the session files recorded by each device: a paginated,
// filterable listing per device and a streamed archive per session. This SDK
// handles the login exchange, builds listing requests and binds the listing
// to a cursor.
//
// # Quick Start
//
// Log in and browse a device's session files:
//
//	sess, err := client.Login(ctx, authEndpoint, username, password,
//	    client.WithBaseURL(apiEndpoint),
//	)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	files := sess.DeviceFileCursor("DELTA_0018")
//	err = files.Init(ctx, filter.And(
//	    filter.New("session_name", "contains", "20211119"),
//	))
//	item, err := files.Item()
//
// A pre-issued token can be used instead of a login:
//
//	c := client.New(
//	    client.WithBaseURL(apiEndpoint),
//	    client.WithToken(token),
//	)
//
// # Errors
//
// Rejected credentials surface as *AuthError, other non-success responses as
// *APIError. Listing failures seen through a cursor are wrapped in
// *cursor.FetchError; use errors.As to reach the underlying type.
//
// # Archives
//
// OpenArchive streams a session archive. The download package writes it to
// disk, reports progress and post-processes it.
package client
