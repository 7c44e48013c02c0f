package core

import (
	"context"
	"errors"
	"fmt"

	"arbor/pkg/common"

	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyCategory   = errors.New("age category has no valid records")
	ErrUnknownCategory = errors.New("unknown age category")
	ErrUnknownQuery    = errors.New("unknown query kind")
)

// QueryKind selects which end of a category index a lookup returns.
type QueryKind uint8

const (
	Minimum QueryKind = iota
	Maximum
)

func (k QueryKind) String() string {
	switch k {
	case Minimum:
		return "minimum"
	case Maximum:
		return "maximum"
	default:
		return fmt.Sprintf("QueryKind(%d)", uint8(k))
	}
}

// Catalog holds one CategoryIndex per age category. It is never modified
// after BuildCatalog returns.
type Catalog struct {
	indexes  [len(common.Categories)]*CategoryIndex
	dropped  int
	received int
}

type CategoryStats struct {
	Category common.AgeCategory `json:"category"`
	Size     int                `json:"size"`
	Depth    int                `json:"depth"`
}

type CatalogStats struct {
	Received   int             `json:"received"`
	Dropped    int             `json:"dropped"`
	Categories []CategoryStats `json:"categories"`
}

// BuildCatalog partitions records by age category, drops unmeasured ones and
// builds the four indexes. Every category must end up with at least one
// record, otherwise ErrEmptyCategory is returned.
func BuildCatalog(ctx context.Context, records []common.Record) (*Catalog, error) {
	var parts [len(common.Categories)][]common.Record
	cat := &Catalog{received: len(records)}

	for _, r := range records {
		if !r.Measured() {
			cat.dropped++
			continue
		}
		if !r.Age.Valid() {
			return nil, fmt.Errorf("record %d: %w: %d", r.ID, ErrUnknownCategory, uint8(r.Age))
		}
		parts[r.Age] = append(parts[r.Age], r)
	}

	for _, c := range common.Categories {
		if len(parts[c]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, c)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range common.Categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx, err := BuildIndex(parts[c])
			if err != nil {
				return fmt.Errorf("building %s index: %w", c, err)
			}
			cat.indexes[c] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return cat, nil
}

func (c *Catalog) index(category common.AgeCategory) (*CategoryIndex, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(category))
	}
	return c.indexes[category], nil
}

// Lookup returns the shortest or tallest tree of a category.
func (c *Catalog) Lookup(category common.AgeCategory, kind QueryKind) (common.Record, error) {
	idx, err := c.index(category)
	if err != nil {
		return common.Record{}, err
	}

	switch kind {
	case Minimum:
		return idx.Minimum(), nil
	case Maximum:
		return idx.Maximum(), nil
	default:
		return common.Record{}, fmt.Errorf("%w: %s", ErrUnknownQuery, kind)
	}
}

// Size is the number of records indexed for category, 0 for an unknown one.
func (c *Catalog) Size(category common.AgeCategory) int {
	idx, err := c.index(category)
	if err != nil {
		return 0
	}
	return idx.Size()
}

// Stats reports per-category size and depth plus the unmeasured records
// dropped at build time. It backs the health endpoint and index gauges.
func (c *Catalog) Stats() CatalogStats {
	st := CatalogStats{
		Received:   c.received,
		Dropped:    c.dropped,
		Categories: make([]CategoryStats, 0, len(c.indexes)),
	}
	for _, cat := range common.Categories {
		idx := c.indexes[cat]
		st.Categories = append(st.Categories, CategoryStats{
			Category: cat,
			Size:     idx.Size(),
			Depth:    idx.Depth(),
		})
	}
	return st
}
