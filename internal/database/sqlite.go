package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ameet2r/workout/internal/models"
	"github.com/ameet2r/workout/internal/parser"
	"github.com/ameet2r/workout/internal/timeseries"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// writeGroupSize bounds how many batch documents go into one transaction,
// mirroring the per-write operation limit of document stores.
const writeGroupSize = 500

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		return nil, err
	}
	return sqlite, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workout_sessions (
		id TEXT PRIMARY KEY,
		plan_id TEXT,
		notes TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		exercises TEXT NOT NULL DEFAULT '[]',
		activity_summary TEXT,
		activity_start DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON workout_sessions(start_time);

	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		versions TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workout_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		exercises TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS timeseries_batches (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (session_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_batches_session ON timeseries_batches(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- workout sessions ---

func (s *SQLiteDB) CreateSession(session *models.WorkoutSession) error {
	exercises, err := json.Marshal(session.Exercises)
	if err != nil {
		return fmt.Errorf("encode exercises: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO workout_sessions (id, plan_id, notes, start_time, end_time, exercises, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.PlanID, session.Notes,
		session.StartTime, nullableTime(session.EndTime), string(exercises), session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetSession(id string) (*models.WorkoutSession, error) {
	row := s.db.QueryRow(
		`SELECT id, plan_id, notes, start_time, end_time, exercises, activity_summary, activity_start, created_at
		 FROM workout_sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SQLiteDB) ListSessions(limit int) ([]*models.WorkoutSession, error) {
	rows, err := s.db.Query(
		`SELECT id, plan_id, notes, start_time, end_time, exercises, activity_summary, activity_start, created_at
		 FROM workout_sessions ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.WorkoutSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteDB) UpdateSession(session *models.WorkoutSession) error {
	exercises, err := json.Marshal(session.Exercises)
	if err != nil {
		return fmt.Errorf("encode exercises: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE workout_sessions SET plan_id = ?, notes = ?, end_time = ?, exercises = ? WHERE id = ?`,
		session.PlanID, session.Notes, nullableTime(session.EndTime), string(exercises), session.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireRow(res)
}

// AttachActivity stores the parsed summary and start time on a session.
func (s *SQLiteDB) AttachActivity(id string, summary *parser.ActivitySummary, start *time.Time) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode activity summary: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE workout_sessions SET activity_summary = ?, activity_start = ? WHERE id = ?`,
		string(data), nullableTime(start), id,
	)
	if err != nil {
		return fmt.Errorf("attach activity: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM workout_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM timeseries_batches WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session batches: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.WorkoutSession, error) {
	var session models.WorkoutSession
	var id string
	var planID, notes, exercises, summary sql.NullString
	var endTime, activityStart sql.NullTime

	err := row.Scan(&id, &planID, &notes, &session.StartTime, &endTime,
		&exercises, &summary, &activityStart, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsed, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	session.ID = parsed
	if planID.Valid {
		session.PlanID = &planID.String
	}
	if notes.Valid {
		session.Notes = &notes.String
	}
	if endTime.Valid {
		t := endTime.Time
		session.EndTime = &t
	}
	if activityStart.Valid {
		t := activityStart.Time
		session.ActivityStart = &t
	}
	session.Exercises = []models.SessionExercise{}
	if exercises.Valid && exercises.String != "" {
		if err := json.Unmarshal([]byte(exercises.String), &session.Exercises); err != nil {
			return nil, fmt.Errorf("decode exercises: %w", err)
		}
	}
	if summary.Valid && summary.String != "" {
		session.ActivitySummary = &parser.ActivitySummary{}
		if err := json.Unmarshal([]byte(summary.String), session.ActivitySummary); err != nil {
			return nil, fmt.Errorf("decode activity summary: %w", err)
		}
	}
	return &session, nil
}

// --- time-series batches ---

// WriteBatches persists batch documents for a session in groups of at most
// writeGroupSize per transaction. Group boundaries preserve batch order;
// each batch is independently addressable so groups have no ordering
// dependency between them.
func (s *SQLiteDB) WriteBatches(ctx context.Context, sessionID string, batches []timeseries.Batch) error {
	for start := 0; start < len(batches); start += writeGroupSize {
		end := start + writeGroupSize
		if end > len(batches) {
			end = len(batches)
		}
		if err := s.writeBatchGroup(ctx, sessionID, batches[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteDB) writeBatchGroup(ctx context.Context, sessionID string, group []timeseries.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO timeseries_batches (session_id, key, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare batch write: %w", err)
	}
	defer stmt.Close()

	for _, b := range group {
		if _, err := stmt.ExecContext(ctx, sessionID, b.Key(), string(b.Data)); err != nil {
			return fmt.Errorf("write batch %s: %w", b.Key(), err)
		}
	}
	return tx.Commit()
}

// BatchesByPrefix implements timeseries.BatchStore.
func (s *SQLiteDB) BatchesByPrefix(ctx context.Context, sessionID, prefix string) ([]timeseries.StoredBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data FROM timeseries_batches WHERE session_id = ? AND key LIKE ? || '%'`,
		sessionID, prefix)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []timeseries.StoredBatch
	for rows.Next() {
		var b timeseries.StoredBatch
		var data string
		if err := rows.Scan(&b.Key, &data); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.Data = []byte(data)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// SweepOrphanBatches deletes batch rows whose session no longer exists and
// returns how many were removed.
func (s *SQLiteDB) SweepOrphanBatches() (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM timeseries_batches
		 WHERE session_id NOT IN (SELECT id FROM workout_sessions)`)
	if err != nil {
		return 0, fmt.Errorf("sweep orphan batches: %w", err)
	}
	return res.RowsAffected()
}

// --- exercises ---

func (s *SQLiteDB) CreateExercise(e *models.Exercise) error {
	versions, err := json.Marshal(e.Versions)
	if err != nil {
		return fmt.Errorf("encode versions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO exercises (id, name, description, versions, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID.String(), e.Name, e.Description, string(versions), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetExercise(id string) (*models.Exercise, error) {
	row := s.db.QueryRow(`SELECT id, name, description, versions, created_at FROM exercises WHERE id = ?`, id)
	return scanExercise(row)
}

func (s *SQLiteDB) ListExercises() ([]*models.Exercise, error) {
	rows, err := s.db.Query(`SELECT id, name, description, versions, created_at FROM exercises ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	var exercises []*models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

func (s *SQLiteDB) UpdateExercise(e *models.Exercise) error {
	versions, err := json.Marshal(e.Versions)
	if err != nil {
		return fmt.Errorf("encode versions: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE exercises SET name = ?, description = ?, versions = ? WHERE id = ?`,
		e.Name, e.Description, string(versions), e.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update exercise: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) DeleteExercise(id string) error {
	res, err := s.db.Exec(`DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return requireRow(res)
}

func scanExercise(row rowScanner) (*models.Exercise, error) {
	var e models.Exercise
	var id string
	var description sql.NullString
	var versions string

	err := row.Scan(&id, &e.Name, &description, &versions, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan exercise: %w", err)
	}

	parsed, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	e.ID = parsed
	if description.Valid {
		e.Description = &description.String
	}
	e.Versions = []models.ExerciseVersion{}
	if versions != "" {
		if err := json.Unmarshal([]byte(versions), &e.Versions); err != nil {
			return nil, fmt.Errorf("decode versions: %w", err)
		}
	}
	return &e, nil
}

// --- workout plans ---

func (s *SQLiteDB) CreatePlan(p *models.WorkoutPlan) error {
	exercises, err := json.Marshal(p.Exercises)
	if err != nil {
		return fmt.Errorf("encode plan exercises: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO workout_plans (id, name, exercises, created_at) VALUES (?, ?, ?, ?)`,
		p.ID.String(), p.Name, string(exercises), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetPlan(id string) (*models.WorkoutPlan, error) {
	row := s.db.QueryRow(`SELECT id, name, exercises, created_at FROM workout_plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (s *SQLiteDB) ListPlans() ([]*models.WorkoutPlan, error) {
	rows, err := s.db.Query(`SELECT id, name, exercises, created_at FROM workout_plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.WorkoutPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *SQLiteDB) DeletePlan(id string) error {
	res, err := s.db.Exec(`DELETE FROM workout_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return requireRow(res)
}

func scanPlan(row rowScanner) (*models.WorkoutPlan, error) {
	var p models.WorkoutPlan
	var id, exercises string

	err := row.Scan(&id, &p.Name, &exercises, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	parsed, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	p.ID = parsed
	p.Exercises = []models.PlanExercise{}
	if exercises != "" {
		if err := json.Unmarshal([]byte(exercises), &p.Exercises); err != nil {
			return nil, fmt.Errorf("decode plan exercises: %w", err)
		}
	}
	return &p, nil
}

// --- stats ---

type Stats struct {
	Sessions int `json:"sessions"`
	Batches  int `json:"timeseries_batches"`
}

func (s *SQLiteDB) GetStats() (*Stats, error) {
	var stats Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM workout_sessions`).Scan(&stats.Sessions); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM timeseries_batches`).Scan(&stats.Batches); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}
	return &stats, nil
}

// --- helpers ---

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
