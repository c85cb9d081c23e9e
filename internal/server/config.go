package server

import (
	"fmt"
	"time"

	"github.com/cptaffe/acme-paint/internal/catalog"
	"github.com/cptaffe/acme-paint/paint"
)

// DefaultReplayInterval is the delay between replayed actions.
const DefaultReplayInterval = 50 * time.Millisecond

// Config holds the values every new canvas is created with.
type Config struct {
	// Catalog is the read-only set of layers offered to every canvas.
	Catalog paint.Catalog

	// Style, Width and Height seed new canvases.  A canvas may switch
	// style later; its size is fixed.
	Style  paint.Style
	Width  int
	Height int

	// ReplayInterval is the delay between replayed actions.
	ReplayInterval time.Duration
}

// ConfigFrom builds a Config from a parsed catalog file.
func ConfigFrom(cat catalog.Config) Config {
	return Config{
		Catalog:        cat.Layers,
		Style:          cat.Style,
		Width:          cat.Width,
		Height:         cat.Height,
		ReplayInterval: DefaultReplayInterval,
	}
}

// validate fills defaults and rejects unusable values.
func (cfg *Config) validate() error {
	if len(cfg.Catalog) == 0 {
		return fmt.Errorf("empty layer catalog")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("bad canvas size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.ReplayInterval <= 0 {
		cfg.ReplayInterval = DefaultReplayInterval
	}
	return nil
}
