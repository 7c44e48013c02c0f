// Package dataset wires a configured data source to the catalog builder.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"arbor/pkg/config"
	"arbor/pkg/core"
	"arbor/pkg/ingest"
	"arbor/pkg/storage"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the source described by cfg and a closer releasing it.
func Open(cfg config.DataConfig, logger *slog.Logger) (ingest.Source, io.Closer, error) {
	format := ingest.Format(cfg.Format)
	if format == "" {
		f, err := ingest.DetectFormat(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		format = f
	}

	switch format {
	case ingest.FormatXLSX:
		return ingest.NewXLSXSource(cfg.Path, cfg.Sheet), nopCloser{}, nil
	case ingest.FormatCSV:
		return ingest.NewCSVSource(cfg.Path), nopCloser{}, nil
	case ingest.FormatSQLite:
		st, err := storage.OpenSQLiteSource(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ingest.ErrUnknownFormat, cfg.Format)
	}
}

// LoadCatalog ingests the configured dataset and builds the catalog from it.
func LoadCatalog(ctx context.Context, cfg config.DataConfig, logger *slog.Logger) (*core.Catalog, error) {
	start := time.Now()

	src, c, err := Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open data source: %w", err)
	}
	defer c.Close()

	records, _, err := ingest.NewIngestor(src, cfg.Limit, logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", cfg.Path, err)
	}

	cat, err := core.BuildCatalog(ctx, records)
	if err != nil {
		return nil, err
	}

	st := cat.Stats()
	for _, cs := range st.Categories {
		logger.Info("built category index", "category", cs.Category, "size", cs.Size, "depth", cs.Depth)
	}
	logger.Info("catalog ready", "records", st.Received, "dropped", st.Dropped, "duration", time.Since(start))
	return cat, nil
}
