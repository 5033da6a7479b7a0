package download

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

var errEntryEscapes = errors.New("entry path escapes the extraction directory")

// extract unpacks the zip archive at path into dir and returns the names of
// the files written, relative to dir. Symbolic links are skipped.
func extract(path, dir string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ExtractError{Archive: path, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ExtractError{Archive: path, Err: err}
	}

	var files []string
	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return files, &ExtractError{Archive: path, Entry: f.Name, Err: errEntryEscapes}
		}
		target := filepath.Join(dir, name)

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, &ExtractError{Archive: path, Entry: f.Name, Err: err}
			}
			continue
		case mode&fs.ModeSymlink != 0:
			slog.Debug("skipping symlink entry", slog.String("entry", f.Name))
			continue
		}

		if err := extractFile(f, target); err != nil {
			return files, &ExtractError{Archive: path, Entry: f.Name, Err: err}
		}
		files = append(files, name)
	}

	slog.Info("archive extracted",
		slog.String("archive", path),
		slog.String("dir", dir),
		slog.Int("files", len(files)),
	)
	return files, nil
}

func extractFile(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}
