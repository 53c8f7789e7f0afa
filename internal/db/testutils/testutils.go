// Package testutils builds isolated, pre-seeded persistence contexts for
// tests.
package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/model"
)

// TestDataCategories is the fixed category fixture. Identities are assigned
// here because the memory store does not generate them.
var TestDataCategories = []model.Category{
	{CategoryID: 1, CategoryName: "First Category"},
	{CategoryID: 2, CategoryName: "Second Category"},
	{CategoryID: 3, CategoryName: "Third Category"},
}

// SeedData adds TestDataCategories to the context and commits them in one
// batch. It is not idempotent: seeding a store twice fails with the store's
// uniqueness error.
func SeedData(ctx context.Context, c db.Context) error {
	categories := make([]*model.Category, len(TestDataCategories))
	for i := range TestDataCategories {
		category := TestDataCategories[i]
		categories[i] = &category
	}
	c.Categories().Add(categories...)

	if _, err := c.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to seed test data: %w", err)
	}
	return nil
}

// GetApplicationDbContext opens a context over a fresh memory store named
// dbName and seeds it. Distinct names never share data. Nothing is cleaned
// up on failure; callers should retry with another name.
func GetApplicationDbContext(ctx context.Context, dbName string) (*db.AppContext, error) {
	appCtx, err := db.Open(ctx, db.NewMemoryProvider(dbName))
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %q: %w", dbName, err)
	}

	if err := SeedData(ctx, appCtx); err != nil {
		return nil, err
	}
	return appCtx, nil
}

// NewTestContext is GetApplicationDbContext for tests: it fails the test on
// error and closes the context when the test ends.
func NewTestContext(t testing.TB, dbName string) *db.AppContext {
	t.Helper()

	appCtx, err := GetApplicationDbContext(context.Background(), dbName)
	if err != nil {
		t.Fatalf("Failed to create test context: %v", err)
	}
	t.Cleanup(func() {
		appCtx.Close()
	})
	return appCtx
}

// UniqueName derives a database name from the test name so parallel tests
// never collide.
func UniqueName(t testing.TB, suffix string) string {
	t.Helper()
	if suffix == "" {
		return t.Name()
	}
	return t.Name() + "_" + suffix
}
