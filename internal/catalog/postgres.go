package catalog

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver for sqlx
	"github.com/twpayne/go-geom"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// PostgresCatalog reads training polygons from a training_geometries table:
//
//	training_geometries(id serial, year int, class text, geojson text)
//
// Each row holds one GeoJSON geometry; all rows of a key form its collection.
type PostgresCatalog struct {
	db *sqlx.DB
}

var _ contract.Catalog = &PostgresCatalog{} // Compile-time check

// NewPostgresCatalog connects to the catalog database.
func NewPostgresCatalog(connStr string) (*PostgresCatalog, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to training catalog: %w", err)
	}
	return &PostgresCatalog{db: db}, nil
}

// NewPostgresCatalogFromDB wraps an existing connection.
func NewPostgresCatalogFromDB(db *sqlx.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

type geometryRow struct {
	ID      int64  `db:"id"`
	GeoJSON string `db:"geojson"`
}

// Resolve loads and decodes every geometry stored for key.
func (c *PostgresCatalog) Resolve(ctx context.Context, key schema.TrainingKey) (schema.GeometryCollection, error) {
	const query = `
		SELECT id, geojson
		FROM training_geometries
		WHERE year = $1 AND class = $2
		ORDER BY id`

	var rows []geometryRow
	if err := c.db.SelectContext(ctx, &rows, query, int(key.Year), key.Class.Key()); err != nil {
		return schema.GeometryCollection{}, &schema.RemoteComputeError{
			Op:      "training_geometries",
			Message: fmt.Sprintf("failed to query training geometries for %s: %v", key, err),
			Cause:   err,
		}
	}
	if len(rows) == 0 {
		return schema.GeometryCollection{}, &schema.MissingTrainingDataError{Keys: []schema.TrainingKey{key}}
	}

	features := make([]geom.T, 0, len(rows))
	for _, row := range rows {
		g, err := schema.DecodeGeometry([]byte(row.GeoJSON))
		if err != nil {
			return schema.GeometryCollection{}, fmt.Errorf("training geometry %d of %s: %w", row.ID, key, err)
		}
		features = append(features, g)
	}
	return schema.GeometryCollection{Key: key, FeatureCount: len(features), Features: features}, nil
}

// Close closes the database connection.
func (c *PostgresCatalog) Close() error {
	return c.db.Close()
}
