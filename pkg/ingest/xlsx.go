package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const DefaultSheet = "trees"

// XLSXSource streams rows from one worksheet. The first row is the header.
type XLSXSource struct {
	Path  string
	Sheet string
}

func NewXLSXSource(path, sheet string) *XLSXSource {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXSource{Path: path, Sheet: sheet}
}

func (s *XLSXSource) Each(ctx context.Context, fn func(Row) bool) error {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	rows, err := f.Rows(s.Sheet)
	if err != nil {
		return fmt.Errorf("open sheet %q: %w", s.Sheet, err)
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Raw values, so number formats such as "#,##0" do not leak into ids.
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", s.Sheet, err)
		}
		if header == nil {
			header = normalizeHeader(cells)
			continue
		}
		if !fn(rowFromCells(header, cells)) {
			return nil
		}
	}
	return rows.Error()
}
