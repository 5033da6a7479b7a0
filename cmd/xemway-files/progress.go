package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/xemway/xemway-files/pkg/download"
)

const barWidth = 50

// progressBar redraws a single terminal line as a download advances.
type progressBar struct {
	w     io.Writer
	last  int
	drawn bool
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, last: -2}
}

// Update implements the download progress callback.
func (b *progressBar) Update(p download.Progress) {
	if p.Percent < 0 {
		fmt.Fprintf(b.w, "\rDownloaded %s", download.FormatSize(p.Written))
		b.drawn = true
		return
	}
	if p.Percent == b.last {
		return
	}
	b.last = p.Percent

	filled := p.Percent * barWidth / 100
	fmt.Fprintf(b.w, "\rProgress: %3d%% [%s%s]", p.Percent,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled))
	b.drawn = true
}

// Done ends the progress line.
func (b *progressBar) Done() {
	if b.drawn {
		fmt.Fprintln(b.w)
	}
}
