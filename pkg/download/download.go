// Package download streams session archives to disk and post-processes them:
// optional extraction followed by optional pruning of the extracted files.
//
//	d := download.New(c)
//	res, err := d.Download(ctx, "SESSION_1", "/tmp/session.zip", download.Options{
//	    ExtractArchive:      true,
//	    KeepFilesContaining: []string{"ACC", "HR"},
//	})
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/xemway/xemway-files/pkg/client"
)

// ExtractSuffix is appended to the destination to name the extraction
// directory.
const ExtractSuffix = "_extracted"

// ArchiveSource opens session archive streams. *client.Client implements it.
type ArchiveSource interface {
	OpenArchive(ctx context.Context, sessionID string) (*client.Archive, error)
}

// Result describes what a download left on disk.
type Result struct {
	Path           string   // archive path as given
	Bytes          int64    // bytes written to Path
	ExtractedDir   string   // empty when not extracted
	Extracted      []string // extracted files, relative to ExtractedDir
	Kept           []string // top-level files remaining after pruning
	Removed        []string // top-level files deleted by pruning
	ArchiveRemoved bool
}

// Downloader runs downloads against an ArchiveSource.
type Downloader struct {
	src       ArchiveSource
	chunkSize int
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithChunkSize sets the default read size. Values below one are ignored.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n >= 1 {
			d.chunkSize = n
		}
	}
}

// New creates a Downloader reading archives from src.
func New(src ArchiveSource, opts ...Option) *Downloader {
	d := &Downloader{src: src, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download writes the archive of sessionID to destination, then extracts and
// prunes it as opts ask. A failure while writing leaves the partial file in
// place.
func (d *Downloader) Download(ctx context.Context, sessionID, destination string, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = d.chunkSize
	}

	start := time.Now()
	archive, err := d.src.OpenArchive(ctx, sessionID)
	if err != nil {
		return nil, &DownloadError{SessionID: sessionID, StatusCode: client.StatusCode(err), Err: err}
	}
	defer archive.Body.Close()

	if archive.Size < 0 && !opts.AllowUnknownSize {
		return nil, ErrMissingContentLength
	}

	size := "unknown"
	if archive.Size >= 0 {
		size = FormatSize(archive.Size)
	}
	slog.Info("downloading session archive",
		slog.String("session", sessionID),
		slog.String("destination", destination),
		slog.String("size", size),
	)

	written, err := writeArchive(ctx, archive.Body, destination, archive.Size, opts)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", destination, err)
	}
	slog.Debug("session archive written",
		slog.String("session", sessionID),
		slog.Int64("bytes", written),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	res := &Result{Path: destination, Bytes: written}
	if !opts.ExtractArchive {
		return res, nil
	}

	res.ExtractedDir = destination + ExtractSuffix
	res.Extracted, err = extract(destination, res.ExtractedDir)
	if err != nil {
		return res, err
	}

	if opts.prunes() {
		res.Kept, res.Removed, err = prune(res.ExtractedDir, policyFrom(opts), res.Extracted)
		if err != nil {
			return res, err
		}
	}

	if opts.prunes() || opts.EraseAfterExtract {
		if err := os.Remove(destination); err != nil {
			return res, fmt.Errorf("removing archive: %w", err)
		}
		res.ArchiveRemoved = true
	}
	return res, nil
}

// writeArchive streams body into a new file at path in chunks, reporting
// progress after each one.
func writeArchive(ctx context.Context, body io.Reader, path string, total int64, opts Options) (written int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tracker := progressTracker{total: total, chunkSize: int64(opts.ChunkSize), chunks: opts.ChunkProgress, report: opts.Progress}
	buf := make([]byte, opts.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			tracker.chunk(written)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}

	if err := f.Sync(); err != nil {
		return written, err
	}
	return written, nil
}

type progressTracker struct {
	total     int64
	chunkSize int64
	chunks    bool
	counted   int64
	report    func(Progress)
}

func (t *progressTracker) chunk(written int64) {
	if t.report == nil {
		return
	}
	if t.chunks {
		t.counted += t.chunkSize
	} else {
		t.counted = written
	}

	p := Progress{Written: t.counted, Total: t.total, Percent: -1}
	switch {
	case t.total > 0:
		p.Percent = min(100, int(100*t.counted/t.total))
	case t.total == 0:
		p.Percent = 100
	}
	t.report(p)
}
