package core

import "arbor/pkg/common"

// QueryService exposes a Catalog to concurrent request handlers. The catalog
// is immutable once built, so readers share it without locking.
type QueryService struct {
	catalog *Catalog
}

// NewQueryService wraps a fully built catalog.
func NewQueryService(catalog *Catalog) *QueryService {
	return &QueryService{catalog: catalog}
}

// Lookup delegates to Catalog.Lookup.
func (qs *QueryService) Lookup(category common.AgeCategory, kind QueryKind) (common.Record, error) {
	return qs.catalog.Lookup(category, kind)
}

func (qs *QueryService) Largest(category common.AgeCategory) (common.Record, error) {
	return qs.catalog.Lookup(category, Maximum)
}

func (qs *QueryService) Smallest(category common.AgeCategory) (common.Record, error) {
	return qs.catalog.Lookup(category, Minimum)
}

func (qs *QueryService) Stats() CatalogStats {
	return qs.catalog.Stats()
}
