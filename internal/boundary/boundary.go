// Package boundary resolves the region every analysis operation is clipped to.
package boundary

import (
	"context"
	"fmt"
	"net/http"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// New returns the boundary resolver selected by cfg.
func New(cfg *contract.Config, backend contract.ComputeBackend) (contract.BoundaryResolver, error) {
	switch cfg.BoundarySource {
	case schema.AssetBoundary:
		return NewAssetSource(backend, cfg.RegionAsset, cfg.RegionProperty, cfg.RegionName), nil
	case schema.OverpassBoundary:
		return NewOverpassSource(cfg.OverpassEndpoint, cfg.RegionName, &http.Client{Timeout: cfg.RemoteTimeout}), nil
	default:
		return nil, fmt.Errorf("unsupported boundary source: %s", cfg.BoundarySource)
	}
}

// AssetSource selects the region from an administrative boundary asset by property value.
type AssetSource struct {
	backend  contract.ComputeBackend
	asset    string
	property string
	name     string
}

var _ contract.BoundaryResolver = &AssetSource{} // Compile-time check

// NewAssetSource creates a resolver for asset features where property == name.
func NewAssetSource(backend contract.ComputeBackend, asset, property, name string) *AssetSource {
	return &AssetSource{backend: backend, asset: asset, property: property, name: name}
}

// Resolve checks that the boundary asset holds a matching feature and returns its descriptor.
func (s *AssetSource) Resolve(ctx context.Context) (schema.Region, error) {
	expr := schema.Asset(s.asset).FilterEq(s.property, s.name)
	v, err := s.backend.Execute(ctx, expr.Size())
	if err != nil {
		return schema.Region{}, fmt.Errorf("failed to resolve region %s: %w", s.name, err)
	}
	if err := v.Expect(schema.NumberValue); err != nil {
		return schema.Region{}, fmt.Errorf("failed to resolve region %s: %w", s.name, err)
	}
	if v.Number == nil || *v.Number < 1 {
		return schema.Region{}, fmt.Errorf("region %s=%s not found in %s", s.property, s.name, s.asset)
	}
	return schema.NewRegion(s.name, s.asset, expr, nil), nil
}
