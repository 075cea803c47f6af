// Package catalog resolves persisted training geometries for every (year, class) key.
package catalog

import (
	"fmt"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// New returns the catalog selected by cfg. The returned closer releases any connection.
func New(cfg *contract.Config, backend contract.ComputeBackend) (contract.Catalog, func() error, error) {
	switch cfg.Catalog {
	case schema.AssetCatalog:
		return NewAssetCatalog(backend, cfg.CatalogNamespace, cfg.CatalogCollection), func() error { return nil }, nil
	case schema.PostgresCatalog:
		pc, err := NewPostgresCatalog(cfg.CatalogDBConnect)
		if err != nil {
			return nil, nil, err
		}
		return pc, pc.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported catalog: %s", cfg.Catalog)
	}
}
