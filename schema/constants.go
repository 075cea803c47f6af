package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// BackendKind represents the remote compute backend implementation.
	BackendKind string

	// CatalogKind represents where training geometries are resolved from.
	CatalogKind string

	// BoundarySource represents where the region boundary is resolved from.
	BoundarySource string

	// IndexName names one of the fixed spectral indices.
	IndexName string

	// Stage names one step of a per-year pipeline.
	Stage string

	// StageState is the outcome of a pipeline stage.
	StageState string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	NoneBackend       DatabaseBackend = "none" // default
)

// All compute backends supported.
const (
	HTTPBackend   BackendKind = "http" // default
	ReplayBackend BackendKind = "replay"
)

// All training catalogs supported.
const (
	AssetCatalog    CatalogKind = "asset" // default
	PostgresCatalog CatalogKind = "postgres"
)

// All boundary sources supported.
const (
	AssetBoundary    BoundarySource = "asset" // default
	OverpassBoundary BoundarySource = "overpass"
)

// The fixed set of spectral indices.
const (
	NDVI  IndexName = "NDVI"
	EVI   IndexName = "EVI"
	NDWI  IndexName = "NDWI"
	SAVI  IndexName = "SAVI"
	NBR   IndexName = "NBR"
	BSI   IndexName = "BSI"
	NDBI  IndexName = "NDBI"
	MNDWI IndexName = "MNDWI"
)

// AllIndices lists the spectral indices in display order.
var AllIndices = []IndexName{NDVI, EVI, NDWI, SAVI, NBR, BSI, NDBI, MNDWI}

// Pipeline stages tracked per year.
const (
	CompositeStage      Stage = "composite"
	IndicesStage        Stage = "indices"
	ClassificationStage Stage = "classification"
	ClimateStage        Stage = "climate"
)

// AllStages lists the stages in execution order.
var AllStages = []Stage{CompositeStage, IndicesStage, ClassificationStage, ClimateStage}

// Stage outcomes.
const (
	StagePending   StageState = "pending"
	StageSucceeded StageState = "succeeded"
	StagePartial   StageState = "partial"
	StageFailed    StageState = "failed"
	StageSkipped   StageState = "skipped"
)

// Canonical band roles shared by every sensor after reconciliation.
const (
	BandBlue  = "blue"
	BandGreen = "green"
	BandRed   = "red"
	BandNIR   = "nir"
	BandSWIR1 = "swir1"
	BandSWIR2 = "swir2"
)

// CanonicalBands lists the reflectance bands every composite exposes.
var CanonicalBands = []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2}

// ClassProperty is the feature property holding the class label in training samples.
const ClassProperty = "landcover"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidBackendKinds lists all valid compute backends.
var ValidBackendKinds = map[BackendKind]struct{}{
	HTTPBackend:   {},
	ReplayBackend: {},
}

// ValidCatalogKinds lists all valid training catalogs.
var ValidCatalogKinds = map[CatalogKind]struct{}{
	AssetCatalog:    {},
	PostgresCatalog: {},
}

// ValidBoundarySources lists all valid boundary sources.
var ValidBoundarySources = map[BoundarySource]struct{}{
	AssetBoundary:    {},
	OverpassBoundary: {},
}
