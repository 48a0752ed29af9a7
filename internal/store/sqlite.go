package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/territory-engine/internal/model"
)

// SQLiteStore implements Store on an embedded SQLite database. It is
// the alternative to the flat-JSON backend for installs that want
// transactional writes without an external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS territories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS assignments (
	zone_id      TEXT PRIMARY KEY,
	territory_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS coverage_cache (
	fingerprint      TEXT PRIMARY KEY,
	duration_minutes INTEGER NOT NULL,
	origins          TEXT NOT NULL,
	zone_ids         TEXT NOT NULL,
	computed_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assignments_territory_id ON assignments(territory_id);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM territories ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list territories")
	}
	defer rows.Close()

	var ts []model.Territory
	for rows.Next() {
		var t model.Territory
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan territory")
		}
		ts = append(ts, t)
	}
	return ts, eris.Wrap(rows.Err(), "sqlite: iterate territories")
}

func (s *SQLiteStore) CreateTerritory(ctx context.Context, name, color string) (*model.Territory, error) {
	t := model.Territory{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO territories (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Color, t.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert territory")
	}
	return &t, nil
}

func (s *SQLiteStore) UpdateTerritory(ctx context.Context, id string, patch model.TerritoryPatch) (*model.Territory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM territories WHERE id = ?`, id)

	var t model.Territory
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "update territory %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get territory")
	}

	patch.Apply(&t)
	_, err = s.db.ExecContext(ctx,
		`UPDATE territories SET name = ?, color = ? WHERE id = ?`,
		t.Name, t.Color, t.ID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update territory %s", id)
	}
	return &t, nil
}

func (s *SQLiteStore) DeleteTerritory(ctx context.Context, id string) error {
	// The assignments table is deliberately untouched: deletes do not
	// cascade, matching the JSON backend.
	res, err := s.db.ExecContext(ctx, `DELETE FROM territories WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete territory %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "delete territory %s", id)
	}
	return nil
}

func (s *SQLiteStore) ReplaceTerritories(ctx context.Context, territories []model.Territory) error {
	return s.inTx(ctx, "replace territories", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM territories`); err != nil {
			return err
		}
		for _, t := range territories {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO territories (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
				t.ID, t.Name, t.Color, t.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Assignments(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT zone_id, territory_id FROM assignments`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var zone, terr string
		if err := rows.Scan(&zone, &terr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		m[zone] = terr
	}
	return m, eris.Wrap(rows.Err(), "sqlite: iterate assignments")
}

func (s *SQLiteStore) SetAssignment(ctx context.Context, zoneID, territoryID string) error {
	if territoryID == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE zone_id = ?`, zoneID)
		return eris.Wrapf(err, "sqlite: clear assignment %s", zoneID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (zone_id, territory_id) VALUES (?, ?)
		ON CONFLICT (zone_id) DO UPDATE SET territory_id = excluded.territory_id`,
		zoneID, territoryID,
	)
	return eris.Wrapf(err, "sqlite: set assignment %s", zoneID)
}

func (s *SQLiteStore) ReplaceAssignments(ctx context.Context, assignments map[string]string) error {
	return s.inTx(ctx, "replace assignments", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assignments`); err != nil {
			return err
		}
		for zone, terr := range assignments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO assignments (zone_id, territory_id) VALUES (?, ?)`,
				zone, terr,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) PruneDangling(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM assignments
		WHERE territory_id NOT IN (SELECT id FROM territories)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune dangling")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetCoverage(ctx context.Context, fingerprint string) (*model.CoverageEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, duration_minutes, origins, zone_ids, computed_at
		FROM coverage_cache WHERE fingerprint = ?`, fingerprint)

	var e model.CoverageEntry
	var originsJSON, zonesJSON string
	err := row.Scan(&e.Fingerprint, &e.DurationMinutes, &originsJSON, &zonesJSON, &e.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get coverage")
	}
	if err := json.Unmarshal([]byte(originsJSON), &e.Origins); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal origins")
	}
	if err := json.Unmarshal([]byte(zonesJSON), &e.ZoneIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal zone ids")
	}
	return &e, nil
}

func (s *SQLiteStore) PutCoverage(ctx context.Context, entry model.CoverageEntry) error {
	originsJSON, err := json.Marshal(entry.Origins)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal origins")
	}
	zonesJSON, err := json.Marshal(entry.ZoneIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal zone ids")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO coverage_cache (fingerprint, duration_minutes, origins, zone_ids, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			duration_minutes = excluded.duration_minutes,
			origins = excluded.origins,
			zone_ids = excluded.zone_ids,
			computed_at = excluded.computed_at`,
		entry.Fingerprint, entry.DurationMinutes, string(originsJSON), string(zonesJSON), entry.ComputedAt,
	)
	return eris.Wrap(err, "sqlite: put coverage")
}

func (s *SQLiteStore) ClearCoverage(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM coverage_cache`)
	return eris.Wrap(err, "sqlite: clear coverage")
}

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin %s", op)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return eris.Wrapf(err, "sqlite: %s", op)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", op)
}
