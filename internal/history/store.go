package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists analysis-run snapshots in a local sqlite database.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one snapshot, assigning it a fresh run id. Returns the
// id so callers can log it.
func (s *Store) Record(snap Snapshot) (string, error) {
	runID := uuid.NewString()
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	commitTS := ""
	if !snap.CommitTimestamp.IsZero() {
		commitTS = snap.CommitTimestamp.UTC().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
INSERT INTO snapshots (
  run_id, schema_version, ts_utc, commit_hash, commit_ts_utc,
  tracked_files, registry_files, import_edges,
  error_count, warning_count, cycle_count, unused_import_count,
  evaluator_resets, analysis_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, SchemaVersion, snap.Timestamp.UTC().Format(time.RFC3339),
		snap.CommitHash, commitTS,
		snap.TrackedFiles, snap.RegistryFiles, snap.ImportEdges,
		snap.ErrorCount, snap.WarningCount, snap.CycleCount,
		snap.UnusedImportCount, snap.EvaluatorResets, snap.AnalysisMs,
	)
	if err != nil {
		return "", fmt.Errorf("record snapshot: %w", err)
	}
	return runID, nil
}

// ListSince returns snapshots at or after the cutoff, oldest first.
func (s *Store) ListSince(since time.Time) ([]Snapshot, error) {
	rows, err := s.db.Query(`
SELECT run_id, schema_version, ts_utc, commit_hash, commit_ts_utc,
  tracked_files, registry_files, import_edges,
  error_count, warning_count, cycle_count, unused_import_count,
  evaluator_resets, analysis_ms
FROM snapshots
WHERE ts_utc >= ?
ORDER BY ts_utc ASC`,
		since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var tsRaw, commitTSRaw string
		if err := rows.Scan(
			&snap.RunID, &snap.SchemaVersion, &tsRaw, &snap.CommitHash, &commitTSRaw,
			&snap.TrackedFiles, &snap.RegistryFiles, &snap.ImportEdges,
			&snap.ErrorCount, &snap.WarningCount, &snap.CycleCount,
			&snap.UnusedImportCount, &snap.EvaluatorResets, &snap.AnalysisMs,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, tsRaw); err == nil {
			snap.Timestamp = ts
		}
		if commitTSRaw != "" {
			if ts, err := time.Parse(time.RFC3339, commitTSRaw); err == nil {
				snap.CommitTimestamp = ts
			}
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
