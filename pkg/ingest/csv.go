package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// CSVSource reads a comma separated file whose first line is the header.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Each(ctx context.Context, fn func(Row) bool) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", s.Path, err)
	}
	defer f.Close()

	return eachCSV(ctx, f, fn)
}

func eachCSV(ctx context.Context, r io.Reader, fn func(Row) bool) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read csv header: %w", err)
	}
	header = normalizeHeader(header)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Unparseable line; hand it on as an empty row so it is counted.
				if !fn(Row{}) {
					return nil
				}
				continue
			}
			return err
		}
		if !fn(rowFromCells(header, cells)) {
			return nil
		}
	}
}
