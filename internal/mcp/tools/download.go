package tools

import (
	"context"
	"log/slog"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xemway/xemway-files/pkg/download"
)

// DownloadInput is the input for xemway_file_download.
type DownloadInput struct {
	SessionID            string   `json:"session_id" jsonschema:"Session to download (session_name from xemway_files_list)"`
	Destination          string   `json:"destination" jsonschema:"Path of the archive file to write"`
	Extract              bool     `json:"extract,omitempty" jsonschema:"Unzip into <destination>_extracted (default: false)"`
	KeepFiles            []string `json:"keep_files,omitempty" jsonschema:"After extraction keep only files with these exact names"`
	KeepFilesContaining  []string `json:"keep_files_containing,omitempty" jsonschema:"After extraction keep only files whose name contains one of these"`
	EraseFilesContaining []string `json:"erase_files_containing,omitempty" jsonschema:"After extraction delete files whose name contains one of these"`
	EraseAfterExtract    bool     `json:"erase_after_extract,omitempty" jsonschema:"Delete the archive after extraction"`
	AllowUnknownSize     bool     `json:"allow_unknown_size,omitempty" jsonschema:"Accept a response without Content-Length"`
}

// DownloadOutput is the output for xemway_file_download.
type DownloadOutput struct {
	Path           string   `json:"path"`
	Bytes          int64    `json:"bytes"`
	ExtractedDir   string   `json:"extracted_dir,omitempty"`
	Extracted      []string `json:"extracted,omitempty"`
	Kept           []string `json:"kept,omitempty"`
	Removed        []string `json:"removed,omitempty"`
	ArchiveRemoved bool     `json:"archive_removed"`
}

// ToolFileDownload downloads a session archive and post-processes it.
func ToolFileDownload(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input DownloadInput) (*sdkmcp.CallToolResult, DownloadOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input DownloadInput) (*sdkmcp.CallToolResult, DownloadOutput, error) {
		if input.SessionID == "" {
			return nil, DownloadOutput{}, ErrInvalidInput("session_id is required")
		}
		if input.Destination == "" {
			return nil, DownloadOutput{}, ErrInvalidInput("destination is required")
		}
		dest, err := filepath.Abs(input.Destination)
		if err != nil {
			return nil, DownloadOutput{}, ErrInvalidInput(err.Error())
		}

		if d.Config.DownloadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.Config.DownloadTimeout)
			defer cancel()
		}

		last := -1
		res, err := d.Downloader.Download(ctx, input.SessionID, dest, download.Options{
			ExtractArchive:       input.Extract,
			KeepFiles:            input.KeepFiles,
			KeepFilesContaining:  input.KeepFilesContaining,
			EraseFilesContaining: input.EraseFilesContaining,
			EraseAfterExtract:    input.EraseAfterExtract,
			AllowUnknownSize:     input.AllowUnknownSize,
			Progress: func(p download.Progress) {
				if p.Percent >= 0 && p.Percent/10 > last {
					last = p.Percent / 10
					slog.Debug("download progress",
						slog.String("session", input.SessionID),
						slog.Int("percent", p.Percent),
					)
				}
			},
		})
		if err != nil {
			return nil, DownloadOutput{}, WrapXemwayError(err)
		}

		return nil, DownloadOutput{
			Path:           res.Path,
			Bytes:          res.Bytes,
			ExtractedDir:   res.ExtractedDir,
			Extracted:      res.Extracted,
			Kept:           res.Kept,
			Removed:        res.Removed,
			ArchiveRemoved: res.ArchiveRemoved,
		}, nil
	}
}
