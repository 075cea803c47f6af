package pipeline

import (
	"context"
	"errors"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// TrainingDataStore loads labeled geometries for every (year, class) key from a catalog.
type TrainingDataStore struct {
	catalog contract.Catalog
}

// NewTrainingDataStore creates a store over catalog.
func NewTrainingDataStore(catalog contract.Catalog) *TrainingDataStore {
	return &TrainingDataStore{catalog: catalog}
}

// Load resolves one key. An empty collection counts as missing.
func (s *TrainingDataStore) Load(ctx context.Context, year schema.AnalysisYear, class schema.LandCoverClass) (schema.GeometryCollection, error) {
	key := schema.TrainingKey{Year: year, Class: class}
	gc, err := s.catalog.Resolve(ctx, key)
	if err != nil {
		return schema.GeometryCollection{}, err
	}
	if gc.Empty() {
		return schema.GeometryCollection{}, &schema.MissingTrainingDataError{Keys: []schema.TrainingKey{key}}
	}
	gc.Key = key
	return gc, nil
}

// LoadAll attempts every required key. It returns the resolved set and, when keys are
// missing, a *schema.MissingTrainingDataError listing all of them in year then class order.
// Any other failure aborts the load.
func (s *TrainingDataStore) LoadAll(ctx context.Context) (schema.TrainingGeometrySet, error) {
	set := make(schema.TrainingGeometrySet)
	var missing []schema.TrainingKey
	for _, key := range schema.AllTrainingKeys() {
		gc, err := s.Load(ctx, key.Year, key.Class)
		var mte *schema.MissingTrainingDataError
		switch {
		case err == nil:
			set[key] = gc
		case errors.As(err, &mte):
			missing = append(missing, key)
		default:
			return set, err
		}
	}
	if len(missing) > 0 {
		schema.SortKeys(missing)
		return set, &schema.MissingTrainingDataError{Keys: missing}
	}
	return set, nil
}
