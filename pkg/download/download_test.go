package download

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xemway/xemway-files/pkg/client"
)

type fakeSource struct {
	data  []byte
	size  int64
	err   error
	calls int
}

func (s *fakeSource) OpenArchive(ctx context.Context, sessionID string) (*client.Archive, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &client.Archive{
		SessionID: sessionID,
		Body:      io.NopCloser(bytes.NewReader(s.data)),
		Size:      s.size,
	}, nil
}

func newSource(data []byte) *fakeSource {
	return &fakeSource{data: data, size: int64(len(data))}
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sessionZip(t *testing.T) []byte {
	return makeZip(t, map[string]string{
		"ACC_Data.csv": "acc",
		"HR_Data.csv":  "hr",
		"PPG_Data.csv": "ppg",
	})
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownload_ScenarioB(t *testing.T) {
	data := sessionZip(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/SESSION_1/download", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	c := client.New(client.WithBaseURL(ts.URL), client.WithToken("tok"))
	dest := filepath.Join(t.TempDir(), "session.zip")

	res, err := New(c).Download(context.Background(), "SESSION_1", dest, Options{
		ExtractArchive:      true,
		KeepFilesContaining: []string{"ACC", "HR"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), res.Bytes)
	assert.Equal(t, dest+"_extracted", res.ExtractedDir)
	assert.ElementsMatch(t, []string{"ACC_Data.csv", "HR_Data.csv", "PPG_Data.csv"}, res.Extracted)
	assert.Equal(t, []string{"ACC_Data.csv", "HR_Data.csv"}, res.Kept)
	assert.Equal(t, []string{"PPG_Data.csv"}, res.Removed)
	assert.True(t, res.ArchiveRemoved)

	assert.Equal(t, []string{"ACC_Data.csv", "HR_Data.csv"}, listDir(t, res.ExtractedDir))
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_ScenarioC_MissingContentLength(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("streamed without length"))
	}))
	defer ts.Close()

	c := client.New(client.WithBaseURL(ts.URL))
	dest := filepath.Join(t.TempDir(), "session.zip")

	res, err := New(c).Download(context.Background(), "SESSION_1", dest, Options{})
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrMissingContentLength)

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_AllowUnknownSize(t *testing.T) {
	src := &fakeSource{data: []byte("0123456789"), size: -1}
	dest := filepath.Join(t.TempDir(), "session.zip")

	var reports []Progress
	res, err := New(src).Download(context.Background(), "s", dest, Options{
		AllowUnknownSize: true,
		ChunkSize:        4,
		Progress:         func(p Progress) { reports = append(reports, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Bytes)

	require.Len(t, reports, 3)
	for _, p := range reports {
		assert.Equal(t, -1, p.Percent)
		assert.Equal(t, int64(-1), p.Total)
	}
	assert.Equal(t, int64(10), reports[2].Written)
}

func TestDownload_PassThrough(t *testing.T) {
	data := sessionZip(t)
	dest := filepath.Join(t.TempDir(), "session.zip")

	res, err := New(newSource(data)).Download(context.Background(), "s", dest, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.ExtractedDir)
	assert.False(t, res.ArchiveRemoved)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	_, err = os.Stat(dest + ExtractSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_ProgressBytesWritten(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	dest := filepath.Join(t.TempDir(), "a.zip")

	var reports []Progress
	_, err := New(newSource(data), WithChunkSize(32)).Download(context.Background(), "s", dest, Options{
		Progress: func(p Progress) { reports = append(reports, p) },
	})
	require.NoError(t, err)

	assert.Equal(t, []Progress{
		{Written: 32, Total: 100, Percent: 32},
		{Written: 64, Total: 100, Percent: 64},
		{Written: 96, Total: 100, Percent: 96},
		{Written: 100, Total: 100, Percent: 100},
	}, reports)
}

func TestDownload_ChunkProgressCapsAt100(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	dest := filepath.Join(t.TempDir(), "a.zip")

	var reports []Progress
	_, err := New(newSource(data)).Download(context.Background(), "s", dest, Options{
		ChunkSize:     32,
		ChunkProgress: true,
		Progress:      func(p Progress) { reports = append(reports, p) },
	})
	require.NoError(t, err)

	require.Len(t, reports, 4)
	assert.Equal(t, int64(128), reports[3].Written)
	assert.Equal(t, 100, reports[3].Percent)
}

func TestDownload_InvalidOptions(t *testing.T) {
	cases := map[string]Options{
		"keep files":          {KeepFiles: []string{"a"}},
		"keep containing":     {KeepFilesContaining: []string{"a"}},
		"erase containing":    {EraseFilesContaining: []string{"a"}},
		"erase after extract": {EraseAfterExtract: true},
		"negative chunk size": {ChunkSize: -1},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			src := newSource(nil)
			_, err := New(src).Download(context.Background(), "s", filepath.Join(t.TempDir(), "a.zip"), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.Zero(t, src.calls)
		})
	}
}

func TestDownload_SourceError(t *testing.T) {
	src := &fakeSource{err: &client.APIError{StatusCode: http.StatusNotFound, Message: "no such session"}}
	dest := filepath.Join(t.TempDir(), "a.zip")

	_, err := New(src).Download(context.Background(), "missing", dest, Options{})

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, "missing", dlErr.SessionID)
	assert.Equal(t, http.StatusNotFound, dlErr.StatusCode)

	var apiErr *client.APIError
	assert.ErrorAs(t, err, &apiErr)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownload_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newSource([]byte("data"))).Download(ctx, "s", filepath.Join(t.TempDir(), "a.zip"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownload_KeepFilesExact(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{
		ExtractArchive: true,
		KeepFiles:      []string{"HR_Data.csv", "HR"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"HR_Data.csv"}, listDir(t, res.ExtractedDir))
	assert.True(t, res.ArchiveRemoved)
}

func TestDownload_EraseContaining(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{
		ExtractArchive:       true,
		EraseFilesContaining: []string{"PPG"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACC_Data.csv", "HR_Data.csv"}, listDir(t, res.ExtractedDir))
	assert.Equal(t, []string{"PPG_Data.csv"}, res.Removed)
}

func TestDownload_SweepsCombine(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{
		ExtractArchive:       true,
		KeepFilesContaining:  []string{"Data"},
		EraseFilesContaining: []string{"HR"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACC_Data.csv", "PPG_Data.csv"}, listDir(t, res.ExtractedDir))
}

func TestDownload_PruneKeepsHiddenAndSubdirs(t *testing.T) {
	data := makeZip(t, map[string]string{
		".meta":       "m",
		"ACC.csv":     "a",
		"PPG.csv":     "p",
		"raw/PPG.bin": "b",
	})
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(data)).Download(context.Background(), "s", dest, Options{
		ExtractArchive:      true,
		KeepFilesContaining: []string{"ACC"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{".meta", "ACC.csv"}, res.Kept)
	assert.Equal(t, []string{"PPG.csv"}, res.Removed)
	_, err = os.Stat(filepath.Join(res.ExtractedDir, "raw", "PPG.bin"))
	assert.NoError(t, err)
}

func TestDownload_PruneLeavesPreexistingFiles(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "docs")
	dir := dest + ExtractSuffix
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thesis.docx"), []byte("draft"), 0o644))

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{
		ExtractArchive:      true,
		KeepFilesContaining: []string{"ACC"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACC_Data.csv"}, res.Kept)
	assert.Equal(t, []string{"HR_Data.csv", "PPG_Data.csv"}, res.Removed)
	content, err := os.ReadFile(filepath.Join(dir, "thesis.docx"))
	require.NoError(t, err)
	assert.Equal(t, "draft", string(content))
	assert.Equal(t, []string{"ACC_Data.csv", "thesis.docx"}, listDir(t, dir))
}

func TestDownload_PruneMatchesNormalizedNames(t *testing.T) {
	data := makeZip(t, map[string]string{
		"Caf\u00e9.csv": "composed",
		"Other.csv":     "x",
	})
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(data)).Download(context.Background(), "s", dest, Options{
		ExtractArchive: true,
		KeepFiles:      []string{"Cafe\u0301.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Caf\u00e9.csv"}, res.Kept)
	assert.Equal(t, []string{"Other.csv"}, res.Removed)
}

func TestDownload_EraseAfterExtract(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{
		ExtractArchive:    true,
		EraseAfterExtract: true,
	})
	require.NoError(t, err)

	assert.True(t, res.ArchiveRemoved)
	assert.Len(t, listDir(t, res.ExtractedDir), 3)
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_ExtractKeepsArchive(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource(sessionZip(t))).Download(context.Background(), "s", dest, Options{ExtractArchive: true})
	require.NoError(t, err)

	assert.False(t, res.ArchiveRemoved)
	assert.Nil(t, res.Kept)
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}

func TestDownload_CorruptArchive(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "s.zip")

	res, err := New(newSource([]byte("this is not a zip file"))).Download(context.Background(), "s", dest, Options{
		ExtractArchive:      true,
		KeepFilesContaining: []string{"ACC"},
	})

	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, dest, extractErr.Archive)
	require.NotNil(t, res)
	assert.False(t, res.ArchiveRemoved)
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}

func TestDownload_EntryEscapingDirectory(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "s.zip")
	data := makeZip(t, map[string]string{"../evil.txt": "gotcha"})

	_, err := New(newSource(data)).Download(context.Background(), "s", dest, Options{ExtractArchive: true})

	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "../evil.txt", extractErr.Entry)
	assert.ErrorIs(t, err, errEntryEscapes)

	_, err = os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0.0B"},
		{512, "512.0B"},
		{1536, "1.5KiB"},
		{3 << 20, "3.0MiB"},
		{5 << 30, "5.0GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in))
	}
}
