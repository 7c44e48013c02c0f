package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"arbor/pkg/common"
)

// Column names expected in every source.
const (
	ColID         = "id"
	ColAge        = "age"
	ColTrunkWidth = "trunk_width"
	ColWard       = "ward"
	ColSpecies    = "species"
	ColHeight     = "height"
)

var Columns = []string{ColID, ColAge, ColTrunkWidth, ColWard, ColSpecies, ColHeight}

var ErrUnknownFormat = errors.New("unknown source format")

// Row is one raw dataset row keyed by column name.
type Row map[string]string

// Source produces raw rows in dataset order. Each stops early when fn
// returns false.
type Source interface {
	Each(ctx context.Context, fn func(Row) bool) error
}

// Format identifies the file type of a data source.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// rowFromCells zips a header row with a data row. Short rows leave the
// trailing columns unset.
func rowFromCells(header, cells []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if i < len(cells) {
			row[name] = cells[i]
		}
	}
	return row
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// Decode converts a raw row into a Record.
func Decode(row Row) (common.Record, error) {
	var rec common.Record

	id, err := parseUint(row, ColID)
	if err != nil {
		return rec, err
	}
	width, err := parseUint(row, ColTrunkWidth)
	if err != nil {
		return rec, err
	}
	height, err := parseUint(row, ColHeight)
	if err != nil {
		return rec, err
	}

	ageStr, ok := row[ColAge]
	if !ok {
		return rec, fmt.Errorf("missing column %q", ColAge)
	}
	age, err := common.ParseAgeCategory(strings.TrimSpace(ageStr))
	if err != nil {
		return rec, err
	}

	ward, ok := row[ColWard]
	if !ok {
		return rec, fmt.Errorf("missing column %q", ColWard)
	}
	species, ok := row[ColSpecies]
	if !ok {
		return rec, fmt.Errorf("missing column %q", ColSpecies)
	}

	return common.Record{
		ID:         id,
		Age:        age,
		TrunkWidth: width,
		Ward:       ward,
		Species:    species,
		Height:     height,
	}, nil
}

// parseUint reads a 32-bit unsigned column. Spreadsheet cells may hold
// integral floats such as "12.0".
func parseUint(row Row, col string) (uint32, error) {
	s, ok := row[col]
	if !ok {
		return 0, fmt.Errorf("missing column %q", col)
	}
	s = strings.TrimSpace(s)

	v, err := strconv.ParseUint(s, 10, 32)
	if err == nil {
		return uint32(v), nil
	}

	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f < 0 || f > float64(^uint32(0)) || f != float64(uint32(f)) {
		return 0, fmt.Errorf("column %q: invalid unsigned integer %q", col, s)
	}
	return uint32(f), nil
}
