package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xemway/xemway-files/internal/config"
	"github.com/xemway/xemway-files/pkg/client"
	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/download"
)

type fakeAPI struct {
	records   int
	archive   []byte
	status    int
	filtering []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/file/") {
		if r.URL.Path != "/file/session-1/download" {
			http.Error(w, `{"error":"unknown session"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write(f.archive)
		return
	}

	raw := r.URL.Query().Get("filtering")
	f.filtering = append(f.filtering, raw)
	var q struct {
		Skip int `json:"skip"`
		Take int `json:"take"`
	}
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		http.Error(w, "bad filtering", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0)
	for i := q.Skip; i < q.Skip+q.Take && i < f.records; i++ {
		results = append(results, map[string]any{
			"session_name": fmt.Sprintf("session-%d", i),
			"device_name":  "DELTA_0018",
			"size":         i,
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"results":    results,
		"pagination": map[string]any{"page": q.Skip/q.Take + 1, "pageSize": q.Take, "count": f.records},
	})
}

func newDeps(t *testing.T, api *fakeAPI) *Deps {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		PageSize:          20,
		FetchTimeout:      5 * time.Second,
		DownloadTimeout:   5 * time.Second,
		DownloadChunkSize: 1024,
	}
	return NewDeps(client.New(client.WithBaseURL(ts.URL), client.WithToken("tok")), cfg)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, code, coded.Code)
}

func TestFilesList_Window(t *testing.T) {
	api := &fakeAPI{records: 45}
	d := newDeps(t, api)

	_, out, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{
		Device: "DELTA_0018",
		Offset: 18,
		Limit:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, 45, out.Count)
	require.Len(t, out.Files, 5)
	assert.Equal(t, "session-18", out.Files[0].SessionID)
	assert.Equal(t, "session-22", out.Files[4].SessionID)
	assert.Contains(t, out.Hint, "offset 23")
	assert.Len(t, api.filtering, 2)
}

func TestFilesList_FiltersAndJQ(t *testing.T) {
	api := &fakeAPI{records: 3}
	d := newDeps(t, api)

	_, out, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{
		Device: "DELTA_0018",
		Logic:  "or",
		Filters: []FilterInput{
			{Field: "session_name", Operator: "contains", Value: "2021"},
			{Field: "size", Operator: "gt", Value: float64(10)},
		},
		JQ: ".session_name",
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"session-0", "session-1", "session-2"}, out.Values)
	assert.Empty(t, out.Hint)
	require.Len(t, api.filtering, 1)
	assert.JSONEq(t, `{
		"skip": 0, "take": 20,
		"filter": {"logic": "and", "filters": [
			{"logic": "or", "filters": [
				{"field": "session_name", "operator": "contains", "value": "2021"},
				{"field": "size", "operator": "gt", "value": 10}
			]}
		]}
	}`, api.filtering[0])
}

func TestFilesList_JQMaxValues(t *testing.T) {
	d := newDeps(t, &fakeAPI{records: 10})

	_, out, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{
		Device:    "DELTA_0018",
		JQ:        ".session_name, .device_name",
		MaxValues: 3,
	})
	require.NoError(t, err)

	assert.Len(t, out.Files, 10)
	assert.Equal(t, []any{"session-0", "DELTA_0018", "session-1"}, out.Values)
}

func TestFilesList_InvalidInput(t *testing.T) {
	d := newDeps(t, &fakeAPI{records: 1})
	tool := ToolFilesList(d)
	ctx := context.Background()

	cases := map[string]FilesListInput{
		"missing device":  {},
		"negative offset": {Device: "d", Offset: -1},
		"bad logic":       {Device: "d", Logic: "xor", Filters: []FilterInput{{Field: "f", Operator: "eq", Value: "v"}}},
		"bad value":       {Device: "d", Filters: []FilterInput{{Field: "f", Operator: "eq", Value: true}}},
		"missing field":   {Device: "d", Filters: []FilterInput{{Operator: "eq", Value: "v"}}},
		"bad jq":          {Device: "d", JQ: ".["},
		"negative max":    {Device: "d", JQ: ".", MaxValues: -1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := tool(ctx, nil, in)
			requireCode(t, err, ErrCodeInvalidInput)
		})
	}
}

func TestFilesList_OffsetPastEnd(t *testing.T) {
	d := newDeps(t, &fakeAPI{records: 3})
	_, _, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{Device: "d", Offset: 3})
	requireCode(t, err, ErrCodeOutOfRange)
}

func TestFilesList_Empty(t *testing.T) {
	d := newDeps(t, &fakeAPI{records: 0})
	_, out, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{Device: "d"})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.Empty(t, out.Files)
	assert.NotEmpty(t, out.Hint)
}

func TestFilesList_Unauthorized(t *testing.T) {
	d := newDeps(t, &fakeAPI{status: http.StatusUnauthorized})
	_, _, err := ToolFilesList(d)(context.Background(), nil, FilesListInput{Device: "d"})
	requireCode(t, err, ErrCodeAuthFailed)
}

func zipOf(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(n))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFileDownload(t *testing.T) {
	d := newDeps(t, &fakeAPI{archive: zipOf(t, "ACC_Data.csv", "HR_Data.csv", "PPG_Data.csv")})
	dest := filepath.Join(t.TempDir(), "session-1.zip")

	_, out, err := ToolFileDownload(d)(context.Background(), nil, DownloadInput{
		SessionID:           "session-1",
		Destination:         dest,
		Extract:             true,
		KeepFilesContaining: []string{"ACC", "HR"},
	})
	require.NoError(t, err)

	assert.Equal(t, dest, out.Path)
	assert.Equal(t, []string{"ACC_Data.csv", "HR_Data.csv"}, out.Kept)
	assert.Equal(t, []string{"PPG_Data.csv"}, out.Removed)
	assert.True(t, out.ArchiveRemoved)
	_, err = os.Stat(filepath.Join(out.ExtractedDir, "ACC_Data.csv"))
	assert.NoError(t, err)
}

func TestFileDownload_Errors(t *testing.T) {
	d := newDeps(t, &fakeAPI{archive: zipOf(t, "a.csv")})
	tool := ToolFileDownload(d)
	ctx := context.Background()
	dir := t.TempDir()

	_, _, err := tool(ctx, nil, DownloadInput{Destination: filepath.Join(dir, "a.zip")})
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = tool(ctx, nil, DownloadInput{SessionID: "session-1", Destination: filepath.Join(dir, "b.zip"), KeepFiles: []string{"a.csv"}})
	requireCode(t, err, ErrCodeInvalidInput)

	_, _, err = tool(ctx, nil, DownloadInput{SessionID: "missing", Destination: filepath.Join(dir, "c.zip")})
	requireCode(t, err, ErrCodeNotFound)
}

func TestWrapXemwayError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"auth", &cursor.FetchError{Page: 1, StatusCode: 403, Err: &client.AuthError{StatusCode: 403}}, ErrCodeAuthFailed},
		{"closed", fmt.Errorf("listing: %w", client.ErrCredentialClosed), ErrCodeAuthFailed},
		{"range", &cursor.IndexOutOfRangeError{Index: 5, Count: 5}, ErrCodeOutOfRange},
		{"timeout", fmt.Errorf("fetching: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"download not found", &download.DownloadError{SessionID: "s", StatusCode: 404}, ErrCodeNotFound},
		{"server", &client.APIError{StatusCode: 500, Message: "boom"}, ErrCodeXemwayError},
		{"other", errors.New("unexpected"), ErrCodeXemwayError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapXemwayError(tt.err)
			requireCode(t, err, tt.code)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, WrapXemwayError(nil))
}
