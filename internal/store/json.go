package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/model"
)

const (
	territoriesFile = "territories.json"
	assignmentsFile = "assignments.json"
	coverageFile    = "coverage_cache.json"
)

// JSONStore keeps each dataset in one flat JSON document under a data
// directory, read fully on every access and rewritten fully on every
// mutation. A mutex per document serializes writers; earlier writes
// are never silently lost within one process.
type JSONStore struct {
	dir string

	muTerritories sync.Mutex
	muAssignments sync.Mutex
	muCoverage    sync.Mutex
}

// NewJSON creates the data directory if needed and returns the store.
func NewJSON(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create data dir %s", dir)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Close() error { return nil }

// readDoc loads a JSON document into out. A missing or malformed file
// degrades to the zero state with a warning rather than failing the
// caller.
func (s *JSONStore) readDoc(name string, out any) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("store: unreadable document, using empty state",
				zap.String("path", path), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		zap.L().Warn("store: malformed document, using empty state",
			zap.String("path", path), zap.Error(err))
	}
}

// writeDoc atomically replaces a JSON document via temp file + rename.
func (s *JSONStore) writeDoc(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: marshal %s", name)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "store: create temp for %s", name)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "store: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "store: close %s", name)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "store: replace %s", name)
	}
	return nil
}

func (s *JSONStore) territories() []model.Territory {
	var ts []model.Territory
	s.readDoc(territoriesFile, &ts)
	return ts
}

func (s *JSONStore) assignments() map[string]string {
	m := make(map[string]string)
	s.readDoc(assignmentsFile, &m)
	return m
}

// ListTerritories returns all territory records.
func (s *JSONStore) ListTerritories(_ context.Context) ([]model.Territory, error) {
	s.muTerritories.Lock()
	defer s.muTerritories.Unlock()
	return s.territories(), nil
}

// CreateTerritory generates a fresh id, appends, persists, and
// returns the new record.
func (s *JSONStore) CreateTerritory(_ context.Context, name, color string) (*model.Territory, error) {
	s.muTerritories.Lock()
	defer s.muTerritories.Unlock()

	t := model.Territory{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}

	ts := append(s.territories(), t)
	if err := s.writeDoc(territoriesFile, ts); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTerritory applies a partial update in place.
func (s *JSONStore) UpdateTerritory(_ context.Context, id string, patch model.TerritoryPatch) (*model.Territory, error) {
	s.muTerritories.Lock()
	defer s.muTerritories.Unlock()

	ts := s.territories()
	for i := range ts {
		if ts[i].ID != id {
			continue
		}
		patch.Apply(&ts[i])
		if err := s.writeDoc(territoriesFile, ts); err != nil {
			return nil, err
		}
		t := ts[i]
		return &t, nil
	}
	return nil, eris.Wrapf(ErrNotFound, "update territory %s", id)
}

// DeleteTerritory removes the record only; the assignment map is
// untouched and may now hold dangling references.
func (s *JSONStore) DeleteTerritory(_ context.Context, id string) error {
	s.muTerritories.Lock()
	defer s.muTerritories.Unlock()

	ts := s.territories()
	for i := range ts {
		if ts[i].ID == id {
			return s.writeDoc(territoriesFile, append(ts[:i], ts[i+1:]...))
		}
	}
	return eris.Wrapf(ErrNotFound, "delete territory %s", id)
}

// ReplaceTerritories overwrites the full territory list. Last writer
// wins; there is no optimistic concurrency.
func (s *JSONStore) ReplaceTerritories(_ context.Context, territories []model.Territory) error {
	s.muTerritories.Lock()
	defer s.muTerritories.Unlock()

	if territories == nil {
		territories = []model.Territory{}
	}
	return s.writeDoc(territoriesFile, territories)
}

// Assignments returns the full zone→territory map.
func (s *JSONStore) Assignments(_ context.Context) (map[string]string, error) {
	s.muAssignments.Lock()
	defer s.muAssignments.Unlock()
	return s.assignments(), nil
}

// SetAssignment sets or clears one zone's territory. Clearing removes
// the key entirely rather than storing a null marker.
func (s *JSONStore) SetAssignment(_ context.Context, zoneID, territoryID string) error {
	s.muAssignments.Lock()
	defer s.muAssignments.Unlock()

	m := s.assignments()
	if territoryID == "" {
		delete(m, zoneID)
	} else {
		m[zoneID] = territoryID
	}
	return s.writeDoc(assignmentsFile, m)
}

// ReplaceAssignments overwrites the full assignment map.
func (s *JSONStore) ReplaceAssignments(_ context.Context, assignments map[string]string) error {
	s.muAssignments.Lock()
	defer s.muAssignments.Unlock()

	if assignments == nil {
		assignments = map[string]string{}
	}
	return s.writeDoc(assignmentsFile, assignments)
}

// PruneDangling removes assignments whose territory no longer exists
// and returns how many were removed.
func (s *JSONStore) PruneDangling(_ context.Context) (int, error) {
	s.muTerritories.Lock()
	known := make(map[string]bool)
	for _, t := range s.territories() {
		known[t.ID] = true
	}
	s.muTerritories.Unlock()

	s.muAssignments.Lock()
	defer s.muAssignments.Unlock()

	m := s.assignments()
	var pruned []string
	for zone, terr := range m {
		if !known[terr] {
			pruned = append(pruned, zone)
		}
	}
	if len(pruned) == 0 {
		return 0, nil
	}
	for _, zone := range pruned {
		delete(m, zone)
	}
	if err := s.writeDoc(assignmentsFile, m); err != nil {
		return 0, err
	}

	sort.Strings(pruned)
	zap.L().Info("store: pruned dangling assignments",
		zap.Int("count", len(pruned)), zap.Strings("zones", pruned))
	return len(pruned), nil
}

// GetCoverage returns the cached entry for a fingerprint, or nil.
func (s *JSONStore) GetCoverage(_ context.Context, fingerprint string) (*model.CoverageEntry, error) {
	s.muCoverage.Lock()
	defer s.muCoverage.Unlock()

	m := make(map[string]model.CoverageEntry)
	s.readDoc(coverageFile, &m)

	entry, ok := m[fingerprint]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// PutCoverage stores or overwrites a cache entry.
func (s *JSONStore) PutCoverage(_ context.Context, entry model.CoverageEntry) error {
	s.muCoverage.Lock()
	defer s.muCoverage.Unlock()

	m := make(map[string]model.CoverageEntry)
	s.readDoc(coverageFile, &m)
	m[entry.Fingerprint] = entry
	return s.writeDoc(coverageFile, m)
}

// ClearCoverage drops every cached coverage entry.
func (s *JSONStore) ClearCoverage(_ context.Context) error {
	s.muCoverage.Lock()
	defer s.muCoverage.Unlock()
	return s.writeDoc(coverageFile, map[string]model.CoverageEntry{})
}
