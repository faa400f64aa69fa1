package config

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/store"
)

// LayoutOptions returns layout constants with the configured overrides.
func (c *Config) LayoutOptions() layout.Options {
	o := layout.DefaultOptions()
	o.MinSubColumnWidth = c.Layout.MinSubColumnWidth
	o.MaxBoxWidth = c.Layout.MaxBoxWidth
	o.ResultRowCap = c.Layout.ResultRows
	return o.WithDefaults()
}

// StoreOptions returns the store backend settings.
func (c *Config) StoreOptions(logger *log.Logger) store.Options {
	return store.Options{
		Backend:    c.Store.Backend,
		Dir:        c.Store.Dir,
		SQLitePath: c.Store.SQLitePath,
		RedisAddr:  c.Store.RedisAddr,
		RedisDB:    c.Store.RedisDB,
		Prefix:     c.Store.Prefix,
		Logger:     logger,
	}
}

// SessionOptions returns map session settings over st.
func (c *Config) SessionOptions(st store.Store, logger *log.Logger) mapview.Options {
	return mapview.Options{
		Store:             st,
		Layout:            c.LayoutOptions(),
		PersistDelay:      c.Viewport.PersistDelay.Std(),
		SearchDelay:       c.Search.Debounce.Std(),
		SearchLimit:       c.Search.Limit,
		HighlightDuration: c.Teleport.Highlight.Std(),
		Logger:            logger,
	}
}
