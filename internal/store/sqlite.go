package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    variants TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    targeting TEXT,
    start_at INTEGER NOT NULL,
    end_at INTEGER,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);

CREATE TABLE IF NOT EXISTS assignments (
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    assigned_at INTEGER NOT NULL,
    PRIMARY KEY (experiment_id, user_id),
    FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id);

CREATE TABLE IF NOT EXISTS conversions (
    id TEXT PRIMARY KEY,
    experiment_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    event_name TEXT NOT NULL,
    value REAL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (experiment_id) REFERENCES experiments(id)
);

CREATE INDEX IF NOT EXISTS idx_conversions_experiment ON conversions(experiment_id);
CREATE INDEX IF NOT EXISTS idx_conversions_user ON conversions(experiment_id, user_id);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, exp *Experiment) error {
	variantsJSON, err := json.Marshal(exp.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	var targetingJSON []byte
	if len(exp.Targeting) > 0 {
		targetingJSON, err = json.Marshal(exp.Targeting)
		if err != nil {
			return fmt.Errorf("failed to marshal targeting rules: %w", err)
		}
	}

	var endAt sql.NullInt64
	if exp.EndAt != nil {
		endAt = sql.NullInt64{Int64: exp.EndAt.Unix(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, variants, status, targeting, start_at, end_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.Name, string(variantsJSON), string(exp.Status), nullableString(targetingJSON),
		exp.StartAt.Unix(), endAt, exp.CreatedAt.Unix(), exp.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert experiment: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, id string) (*Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, variants, status, targeting, start_at, end_at, created_at, updated_at
		 FROM experiments WHERE id = ?`, id,
	)

	exp, err := scanExperiment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	return exp, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, variants, status, targeting, start_at, end_at, created_at, updated_at
		 FROM experiments ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var exps []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		exps = append(exps, exp)
	}

	return exps, rows.Err()
}

func (s *SQLiteStore) UpdateExperimentStatus(ctx context.Context, id string, status ExperimentStatus, endAt *time.Time) error {
	now := time.Now().Unix()

	var result sql.Result
	var err error

	if endAt != nil {
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, end_at = ?, updated_at = ? WHERE id = ?`,
			string(status), endAt.Unix(), now, id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE experiments SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id,
		)
	}

	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) DeleteExperiment(ctx context.Context, id string) error {
	// Remove dependent records first
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// PutAssignment writes an assignment keyed by (experiment_id, user_id).
// A concurrent duplicate write carries identical content (bucketing is
// deterministic), so INSERT OR IGNORE makes the race harmless.
func (s *SQLiteStore) PutAssignment(ctx context.Context, a *Assignment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (experiment_id, user_id, variant_id, assigned_at)
		 VALUES (?, ?, ?, ?)`,
		a.ExperimentID, a.UserID, a.VariantID, a.AssignedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to put assignment: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetAssignment(ctx context.Context, experimentID, userID string) (*Assignment, error) {
	var a Assignment
	var assignedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE experiment_id = ? AND user_id = ?`,
		experimentID, userID,
	).Scan(&a.ExperimentID, &a.UserID, &a.VariantID, &assignedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	a.AssignedAt = time.Unix(assignedAt, 0)
	return &a, nil
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, experimentID string) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE experiment_id = ? ORDER BY assigned_at`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (s *SQLiteStore) ListUserAssignments(ctx context.Context, userID string) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT experiment_id, user_id, variant_id, assigned_at
		 FROM assignments WHERE user_id = ? ORDER BY assigned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (s *SQLiteStore) AppendConversion(ctx context.Context, ev *ConversionEvent) error {
	var value sql.NullFloat64
	if ev.Value != nil {
		value = sql.NullFloat64{Float64: *ev.Value, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, experiment_id, user_id, variant_id, event_name, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ExperimentID, ev.UserID, ev.VariantID, ev.EventName, value, ev.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append conversion: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ListConversions(ctx context.Context, experimentID string) ([]*ConversionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_id, user_id, variant_id, event_name, value, created_at
		 FROM conversions WHERE experiment_id = ? ORDER BY created_at`,
		experimentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var events []*ConversionEvent
	for rows.Next() {
		var ev ConversionEvent
		var value sql.NullFloat64
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.ExperimentID, &ev.UserID, &ev.VariantID, &ev.EventName, &value, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		if value.Valid {
			v := value.Float64
			ev.Value = &v
		}
		ev.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func scanExperiment(scan func(dest ...any) error) (*Experiment, error) {
	var exp Experiment
	var variantsJSON string
	var targetingJSON sql.NullString
	var endAt sql.NullInt64
	var startAt, createdAt, updatedAt int64

	err := scan(&exp.ID, &exp.Name, &variantsJSON, &exp.Status, &targetingJSON, &startAt, &endAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variantsJSON), &exp.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	if targetingJSON.Valid && targetingJSON.String != "" {
		if err := json.Unmarshal([]byte(targetingJSON.String), &exp.Targeting); err != nil {
			return nil, fmt.Errorf("failed to unmarshal targeting rules: %w", err)
		}
	}

	if endAt.Valid {
		t := time.Unix(endAt.Int64, 0)
		exp.EndAt = &t
	}

	exp.StartAt = time.Unix(startAt, 0)
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	return &exp, nil
}

func scanAssignments(rows *sql.Rows) ([]*Assignment, error) {
	var assignments []*Assignment
	for rows.Next() {
		var a Assignment
		var assignedAt int64
		if err := rows.Scan(&a.ExperimentID, &a.UserID, &a.VariantID, &assignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.AssignedAt = time.Unix(assignedAt, 0)
		assignments = append(assignments, &a)
	}

	return assignments, rows.Err()
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
