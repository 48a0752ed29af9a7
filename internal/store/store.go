// Package store persists territories, the zone→territory assignment
// map, and cached coverage results. Territory and assignment data is
// the system of record, so write failures there are surfaced; cache
// persistence is best-effort and the caller decides how to degrade.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-engine/internal/model"
)

// ErrNotFound is returned when a territory id does not exist.
var ErrNotFound = eris.New("territory not found")

// Store is the persistence contract. All mutations are
// read-entire-state, modify, write-entire-state; implementations
// serialize writers so concurrent mutations cannot interleave.
type Store interface {
	// Territories.
	ListTerritories(ctx context.Context) ([]model.Territory, error)
	CreateTerritory(ctx context.Context, name, color string) (*model.Territory, error)
	UpdateTerritory(ctx context.Context, id string, patch model.TerritoryPatch) (*model.Territory, error)
	// DeleteTerritory removes the territory record only. Assignments
	// pointing at the deleted id are left dangling; PruneDangling is
	// the explicit cleanup path.
	DeleteTerritory(ctx context.Context, id string) error
	ReplaceTerritories(ctx context.Context, territories []model.Territory) error

	// Assignments. Setting a zone's territory to the empty string
	// removes the key entirely: "assigned to nothing" and "never
	// assigned" are indistinguishable.
	Assignments(ctx context.Context) (map[string]string, error)
	SetAssignment(ctx context.Context, zoneID, territoryID string) error
	ReplaceAssignments(ctx context.Context, assignments map[string]string) error
	PruneDangling(ctx context.Context) (int, error)

	// Coverage cache entries. GetCoverage returns (nil, nil) on a
	// miss; freshness is the caller's concern.
	GetCoverage(ctx context.Context, fingerprint string) (*model.CoverageEntry, error)
	PutCoverage(ctx context.Context, entry model.CoverageEntry) error
	ClearCoverage(ctx context.Context) error

	Close() error
}

// Open creates a store for the configured driver: "json" (flat
// documents under a data directory, the default) or "sqlite".
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "json":
		return NewJSON(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
