package download

import "fmt"

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 32 << 10

// Options control a single download.
//
// The prune policies only apply when ExtractArchive is set. They run as three
// sweeps over the top level of the extraction directory, in this order:
// KeepFiles, KeepFilesContaining, EraseFilesContaining. A file survives only
// if it passes every sweep that is set, so a KeepFilesContaining sweep can
// remove a file an EraseFilesContaining sweep was meant to target.
type Options struct {
	// ExtractArchive unzips the archive into "<destination>_extracted".
	ExtractArchive bool

	// KeepFiles removes every file whose name is not in the list.
	KeepFiles []string
	// KeepFilesContaining removes every file whose name contains none of
	// the substrings.
	KeepFilesContaining []string
	// EraseFilesContaining removes every file whose name contains any of
	// the substrings.
	EraseFilesContaining []string

	// EraseAfterExtract deletes the archive after extraction even when no
	// prune policy is set. The archive is always deleted after pruning.
	EraseAfterExtract bool

	// ChunkSize is the read size in bytes. Zero uses the Downloader default.
	ChunkSize int

	// Progress is called after every chunk written.
	Progress func(Progress)
	// ChunkProgress counts progress in whole chunks instead of bytes
	// written, capping the percentage at 100.
	ChunkProgress bool

	// AllowUnknownSize accepts a response without Content-Length. Progress
	// is then reported with Percent -1.
	AllowUnknownSize bool
}

// Progress is a snapshot of a running download.
type Progress struct {
	Written int64
	Total   int64 // -1 when unknown
	Percent int   // -1 when Total is unknown
}

func (o Options) prunes() bool {
	return len(o.KeepFiles) > 0 || len(o.KeepFilesContaining) > 0 || len(o.EraseFilesContaining) > 0
}

func (o Options) validate() error {
	if o.ChunkSize < 0 {
		return fmt.Errorf("%w: negative chunk size %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.ExtractArchive {
		return nil
	}
	if o.prunes() {
		return fmt.Errorf("%w: prune policies require ExtractArchive", ErrInvalidOptions)
	}
	if o.EraseAfterExtract {
		return fmt.Errorf("%w: EraseAfterExtract requires ExtractArchive", ErrInvalidOptions)
	}
	return nil
}
