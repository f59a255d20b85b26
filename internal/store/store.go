// Package store provides the sqlite history index: truth-map snapshot rows,
// SIG rollups and executed-task outcomes across runs. The database is an
// index over artifacts, never the source of truth: everything in it stays
// recomputable from the ledger.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/plumbline/plumbline/internal/model"
)

// Store handles sqlite persistence. Concrete type, not an interface.
type Store struct {
	db *sql.DB
}

// Open creates the store, creating tables if they don't exist
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claim_snapshots (
		run_ts DATETIME NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		claim_id TEXT NOT NULL,
		term TEXT NOT NULL,
		handle TEXT,
		cs REAL NOT NULL,
		ml REAL NOT NULL,
		quadrant TEXT NOT NULL,
		css REAL NOT NULL,
		cpr REAL NOT NULL,
		PRIMARY KEY (run_ts, claim_id)
	);

	CREATE INDEX IF NOT EXISTS idx_claim_snapshots_claim ON claim_snapshots(claim_id, run_ts);

	CREATE TABLE IF NOT EXISTS sig_snapshots (
		ts DATETIME NOT NULL PRIMARY KEY,
		run_id TEXT NOT NULL DEFAULT '',
		composite REAL NOT NULL,
		calibration_error REAL NOT NULL,
		brier REAL NOT NULL,
		half_life REAL NOT NULL,
		proof_density REAL NOT NULL,
		forecast_skill_delta REAL NOT NULL,
		stability REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		claim_id TEXT NOT NULL,
		term TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		edges_added INTEGER NOT NULL DEFAULT 0,
		executed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_outcomes_executed ON task_outcomes(executed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTruthMap records one run's per-claim snapshot rows. Re-recording the
// same (run_ts, claim) pair is a no-op: snapshots are append-only.
func (s *Store) SaveTruthMap(tm *model.TruthMap) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO claim_snapshots (run_ts, run_id, claim_id, term, handle, cs, ml, quadrant, css, cpr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_ts, claim_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range tm.Claims {
		if _, err := stmt.Exec(tm.GeneratedAt.UTC(), tm.RunID, c.ClaimID, c.Term, c.Handle,
			c.CS, c.ML, string(c.Quadrant), c.CSS, c.CPR); err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	return tx.Commit()
}

// ClaimSeries assembles every claim's score series from recorded snapshots,
// ordered by timestamp then claim ID.
func (s *Store) ClaimSeries() ([]model.ClaimSeries, error) {
	rows, err := s.db.Query(`
		SELECT claim_id, run_ts, cs, ml, quadrant
		FROM claim_snapshots
		ORDER BY claim_id, run_ts
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClaimSeries
	var current *model.ClaimSeries
	for rows.Next() {
		var claimID, quadrant string
		var ts time.Time
		var cs, ml float64
		if err := rows.Scan(&claimID, &ts, &cs, &ml, &quadrant); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if current == nil || current.ClaimID != claimID {
			out = append(out, model.ClaimSeries{ClaimID: claimID})
			current = &out[len(out)-1]
		}
		current.Points = append(current.Points, model.SeriesPoint{
			TS:       ts,
			CS:       cs,
			ML:       ml,
			Quadrant: model.Quadrant(quadrant),
		})
	}
	return out, rows.Err()
}

// TruthMapAt reconstructs the claim rows of the snapshot recorded at ts
func (s *Store) TruthMapAt(ts time.Time) (*model.TruthMap, error) {
	rows, err := s.db.Query(`
		SELECT claim_id, term, handle, cs, ml, quadrant, css, cpr
		FROM claim_snapshots WHERE run_ts = ? ORDER BY claim_id
	`, ts.UTC())
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tm := &model.TruthMap{GeneratedAt: ts, Counts: make(map[model.Quadrant]int)}
	for rows.Next() {
		var c model.ClaimScore
		var quadrant string
		if err := rows.Scan(&c.ClaimID, &c.Term, &c.Handle, &c.CS, &c.ML, &quadrant, &c.CSS, &c.CPR); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		c.Quadrant = model.Quadrant(quadrant)
		tm.Claims = append(tm.Claims, c)
		tm.Counts[c.Quadrant]++
	}
	return tm, rows.Err()
}

// SnapshotTimes lists recorded snapshot timestamps in ascending order
func (s *Store) SnapshotTimes() ([]time.Time, error) {
	rows, err := s.db.Query(`SELECT DISTINCT run_ts FROM claim_snapshots ORDER BY run_ts`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot times: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan snapshot time: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// SaveSIG appends one system-health rollup. Duplicate timestamps are
// rejected by the primary key: SIG history is append-only.
func (s *Store) SaveSIG(sig model.SIGSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO sig_snapshots (ts, run_id, composite, calibration_error, brier, half_life, proof_density, forecast_skill_delta, stability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ts) DO NOTHING
	`, sig.TS.UTC(), sig.RunID, sig.Composite, sig.CalibrationError, sig.Brier,
		sig.StabilizationHalfLife, sig.ProofDensity, sig.ForecastSkillDelta, sig.Stability)
	if err != nil {
		return fmt.Errorf("insert sig snapshot: %w", err)
	}
	return nil
}

// SIGHistory returns up to limit snapshots in ascending time order
// (0 = all)
func (s *Store) SIGHistory(limit int) ([]model.SIGSnapshot, error) {
	query := `
		SELECT ts, run_id, composite, calibration_error, brier, half_life, proof_density, forecast_skill_delta, stability
		FROM sig_snapshots ORDER BY ts
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query sig history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.SIGSnapshot
	for rows.Next() {
		var sig model.SIGSnapshot
		if err := rows.Scan(&sig.TS, &sig.RunID, &sig.Composite, &sig.CalibrationError,
			&sig.Brier, &sig.StabilizationHalfLife, &sig.ProofDensity,
			&sig.ForecastSkillDelta, &sig.Stability); err != nil {
			return nil, fmt.Errorf("scan sig row: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// RecordOutcomes stores executed-task outcome rows
func (s *Store) RecordOutcomes(outcomes []model.TaskOutcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO task_outcomes (kind, claim_id, term, run_id, edges_added, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, o := range outcomes {
		if _, err := stmt.Exec(string(o.Kind), o.ClaimID, o.Term, o.RunID, o.EdgesAdded, o.ExecutedAt.UTC()); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}
	return tx.Commit()
}

// OutcomesBetween returns outcomes executed in (from, to], in execution order
func (s *Store) OutcomesBetween(from, to time.Time) ([]model.TaskOutcome, error) {
	rows, err := s.db.Query(`
		SELECT kind, claim_id, term, run_id, edges_added, executed_at
		FROM task_outcomes
		WHERE executed_at > ? AND executed_at <= ?
		ORDER BY executed_at, id
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TaskOutcome
	for rows.Next() {
		var o model.TaskOutcome
		var kind string
		if err := rows.Scan(&kind, &o.ClaimID, &o.Term, &o.RunID, &o.EdgesAdded, &o.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Kind = model.TaskKind(kind)
		out = append(out, o)
	}
	return out, rows.Err()
}
