package catalog

import (
	"context"
	"path"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// AssetCatalog resolves training collections persisted as remote assets under
// <namespace>/<collection>/<class>_<year>.
type AssetCatalog struct {
	backend    contract.ComputeBackend
	namespace  string
	collection string
}

var _ contract.Catalog = &AssetCatalog{} // Compile-time check

// NewAssetCatalog creates a catalog backed by the remote asset store.
func NewAssetCatalog(backend contract.ComputeBackend, namespace, collection string) *AssetCatalog {
	return &AssetCatalog{backend: backend, namespace: namespace, collection: collection}
}

// AssetPath returns the asset path of key.
func (c *AssetCatalog) AssetPath(key schema.TrainingKey) string {
	return path.Join(c.namespace, c.collection, key.String())
}

// Resolve looks up the asset metadata of key. Remote failures are returned unchanged.
func (c *AssetCatalog) Resolve(ctx context.Context, key schema.TrainingKey) (schema.GeometryCollection, error) {
	assetPath := c.AssetPath(key)
	v, err := c.backend.Execute(ctx, schema.AssetInfo(assetPath))
	if err != nil {
		return schema.GeometryCollection{}, err
	}
	if err := v.Expect(schema.AssetValue); err != nil {
		return schema.GeometryCollection{}, &schema.RemoteComputeError{Op: schema.OpAssetInfo, Message: err.Error()}
	}
	if v.Exists == nil || !*v.Exists || v.Count == 0 {
		return schema.GeometryCollection{}, &schema.MissingTrainingDataError{Keys: []schema.TrainingKey{key}}
	}
	return schema.GeometryCollection{Key: key, AssetPath: assetPath, FeatureCount: v.Count}, nil
}
