package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xemway/xemway-files/pkg/download"
)

var (
	dlDest             string
	dlExtract          bool
	dlKeep             []string
	dlKeepContaining   []string
	dlEraseContaining  []string
	dlEraseArchive     bool
	dlAllowUnknownSize bool
	dlChunkProgress    bool
	dlQuiet            bool

	downloadCmd = &cobra.Command{
		Use:   "download SESSION",
		Short: "Download a session archive",
		Long: `Download the archive of SESSION, optionally extracting and pruning it.

With --extract the archive is unzipped into <dest>_extracted. The prune flags
then delete top-level extracted files, in this order: files not named by
--keep, files containing none of --keep-containing, files containing any of
--erase-containing. Hidden files are never removed. The archive is deleted
after pruning, or after extraction with --erase-archive.`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}
)

func init() {
	f := downloadCmd.Flags()
	f.StringVarP(&dlDest, "dest", "o", "", "archive path (default <SESSION>.zip)")
	f.BoolVar(&dlExtract, "extract", false, "unzip the archive")
	f.StringArrayVar(&dlKeep, "keep", nil, "keep only files with this exact name (repeatable)")
	f.StringArrayVar(&dlKeepContaining, "keep-containing", nil, "keep only files whose name contains this (repeatable)")
	f.StringArrayVar(&dlEraseContaining, "erase-containing", nil, "delete files whose name contains this (repeatable)")
	f.BoolVar(&dlEraseArchive, "erase-archive", false, "delete the archive after extraction")
	f.BoolVar(&dlAllowUnknownSize, "allow-unknown-size", false, "accept a response without Content-Length")
	f.BoolVar(&dlChunkProgress, "chunk-progress", false, "count progress in whole chunks")
	f.BoolVarP(&dlQuiet, "quiet", "q", false, "do not draw the progress bar")
}

func runDownload(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	dest := dlDest
	if dest == "" {
		dest = sessionID + ".zip"
	}

	ctx := cmd.Context()
	sess, err := login(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := withTimeout(ctx, cfg.DownloadTimeout)
	defer cancel()

	opts := download.Options{
		ExtractArchive:       dlExtract,
		KeepFiles:            dlKeep,
		KeepFilesContaining:  dlKeepContaining,
		EraseFilesContaining: dlEraseContaining,
		EraseAfterExtract:    dlEraseArchive,
		AllowUnknownSize:     dlAllowUnknownSize,
		ChunkProgress:        dlChunkProgress,
	}
	var bar *progressBar
	if !dlQuiet {
		bar = newProgressBar(cmd.ErrOrStderr())
		opts.Progress = bar.Update
	}

	d := download.New(sess, download.WithChunkSize(cfg.DownloadChunkSize))
	res, err := d.Download(ctx, sessionID, dest, opts)
	if bar != nil {
		bar.Done()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", res.Path, download.FormatSize(res.Bytes))
	if res.ExtractedDir != "" {
		fmt.Fprintf(out, "extracted %d files into %s\n", len(res.Extracted), res.ExtractedDir)
	}
	for _, name := range res.Removed {
		fmt.Fprintf(out, "removed %s\n", name)
	}
	if res.ArchiveRemoved {
		fmt.Fprintf(out, "archive %s deleted\n", res.Path)
	}
	return nil
}
