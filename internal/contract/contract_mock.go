package contract

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/geochange/landchange/schema"
)

// MockComputeBackend is a mock implementation of ComputeBackend for testing.
type MockComputeBackend struct {
	mock.Mock
}

var _ ComputeBackend = &MockComputeBackend{} // Compile-time check

// Execute implements the ComputeBackend interface.
func (m *MockComputeBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	args := m.Called(ctx, expr)
	v, _ := args.Get(0).(schema.Value)
	return v, args.Error(1)
}

// MockCatalog is a mock implementation of Catalog for testing.
type MockCatalog struct {
	mock.Mock
}

var _ Catalog = &MockCatalog{} // Compile-time check

// Resolve implements the Catalog interface.
func (m *MockCatalog) Resolve(ctx context.Context, key schema.TrainingKey) (schema.GeometryCollection, error) {
	args := m.Called(ctx, key)
	gc, _ := args.Get(0).(schema.GeometryCollection)
	return gc, args.Error(1)
}

// MockBoundaryResolver is a mock implementation of BoundaryResolver for testing.
type MockBoundaryResolver struct {
	mock.Mock
}

var _ BoundaryResolver = &MockBoundaryResolver{} // Compile-time check

// Resolve implements the BoundaryResolver interface.
func (m *MockBoundaryResolver) Resolve(ctx context.Context) (schema.Region, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(schema.Region)
	return r, args.Error(1)
}
