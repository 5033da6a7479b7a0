package download

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// policy is the normalized prune configuration.
type policy struct {
	keep           []string
	keepContaining []string
	erase          []string
}

func policyFrom(o Options) policy {
	return policy{
		keep:           normalize(o.KeepFiles),
		keepContaining: normalize(o.KeepFilesContaining),
		erase:          normalize(o.EraseFilesContaining),
	}
}

func normalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = norm.NFC.String(n)
	}
	return out
}

// removes reports whether a file named name fails any of the sweeps that are
// set. name must already be NFC-normalized.
func (p policy) removes(name string) bool {
	if len(p.keep) > 0 && !slices.Contains(p.keep, name) {
		return true
	}
	if len(p.keepContaining) > 0 && !containsAny(name, p.keepContaining) {
		return true
	}
	if len(p.erase) > 0 && containsAny(name, p.erase) {
		return true
	}
	return false
}

func containsAny(name string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// topLevel returns the entries of extracted, relative paths as returned by
// extract, that sit directly in the extraction directory.
func topLevel(extracted []string) map[string]bool {
	names := make(map[string]bool, len(extracted))
	for _, rel := range extracted {
		if !strings.ContainsRune(rel, filepath.Separator) {
			names[rel] = true
		}
	}
	return names
}

// prune deletes the regular files at the top level of dir that p rejects.
// Only names in extracted are considered; anything else in dir was not
// written by the archive and is never touched. Subdirectories and files whose
// name starts with "." are left alone.
func prune(dir string, p policy, extracted []string) (kept, removed []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	fromArchive := topLevel(extracted)
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !fromArchive[name] {
			continue
		}
		if strings.HasPrefix(name, ".") || !p.removes(norm.NFC.String(name)) {
			kept = append(kept, name)
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return kept, removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed = append(removed, name)
	}

	slog.Info("extracted files pruned",
		slog.String("dir", dir),
		slog.Int("kept", len(kept)),
		slog.Int("removed", len(removed)),
	)
	return kept, removed, nil
}
