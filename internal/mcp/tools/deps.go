package tools

import (
	"github.com/xemway/xemway-files/internal/config"
	"github.com/xemway/xemway-files/internal/query"
	"github.com/xemway/xemway-files/pkg/client"
	"github.com/xemway/xemway-files/pkg/cursor"
	"github.com/xemway/xemway-files/pkg/download"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Client     *client.Client
	Downloader *download.Downloader
	Query      *query.Engine
	Config     *config.Config
}

// NewDeps wires the tool dependencies around an authenticated client.
func NewDeps(c *client.Client, cfg *config.Config) *Deps {
	return &Deps{
		Client:     c,
		Downloader: download.New(c, download.WithChunkSize(cfg.DownloadChunkSize)),
		Query:      query.NewEngine(),
		Config:     cfg,
	}
}

// cursorOptions returns the cursor settings taken from the configuration.
func (d *Deps) cursorOptions() []cursor.Option {
	return []cursor.Option{
		cursor.WithPageSize(d.Config.PageSize),
		cursor.WithPageCache(d.Config.PageCacheMaxItems),
		cursor.WithFetchTimeout(d.Config.FetchTimeout),
	}
}
