package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Alnumo/therapy-engine/core/model"
	corestore "github.com/Alnumo/therapy-engine/core/store"
)

// SQLiteStore persists the clinic schedule in a SQLite database. Capacity
// configuration and plan payloads are stored as JSON documents; the columns
// the engine queries on (therapist, time range, status) are first-class.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS therapists (
    id TEXT PRIMARY KEY,
    name TEXT,
    name_ar TEXT,
    specialties TEXT,
    capacity TEXT,
    substitute_eligible INTEGER,
    active INTEGER
);
CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    student_id TEXT,
    program_id TEXT,
    therapist_id TEXT,
    frequency INTEGER,
    duration INTEGER,
    start_date INTEGER,
    end_date INTEGER,
    status INTEGER
);
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    enrollment_id TEXT,
    student_id TEXT,
    therapist_id TEXT,
    start_at INTEGER,
    end_at INTEGER,
    room TEXT,
    status INTEGER,
    travel_minutes INTEGER
);
CREATE INDEX IF NOT EXISTS idx_sessions_therapist_start ON sessions (therapist_id, start_at);
CREATE TABLE IF NOT EXISTS assignments (
    id TEXT PRIMARY KEY,
    therapist_id TEXT,
    student_id TEXT,
    program_id TEXT,
    frequency INTEGER,
    duration INTEGER,
    created_at INTEGER
);
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    status TEXT,
    payload TEXT,
    updated_at INTEGER
);`

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveTherapist inserts or replaces a therapist record.
func (s *SQLiteStore) SaveTherapist(ctx context.Context, t model.Therapist) error {
	specs, err := json.Marshal(t.Specialties)
	if err != nil {
		return err
	}
	capacity, err := json.Marshal(t.Capacity)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO therapists (id, name, name_ar, specialties, capacity, substitute_eligible, active)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.NameAr, string(specs), string(capacity), boolInt(t.SubstituteEligible), boolInt(t.Active))
	return err
}

func (s *SQLiteStore) Therapist(ctx context.Context, id string) (model.Therapist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, name_ar, specialties, capacity, substitute_eligible, active FROM therapists WHERE id = ?`, id)
	t, err := scanTherapist(row)
	if err == sql.ErrNoRows {
		return model.Therapist{}, corestore.ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) ActiveTherapists(ctx context.Context) ([]model.Therapist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, name_ar, specialties, capacity, substitute_eligible, active FROM therapists WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Therapist
	for rows.Next() {
		t, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTherapist(row scanner) (model.Therapist, error) {
	var t model.Therapist
	var specs, capacity string
	var eligible, active int
	if err := row.Scan(&t.ID, &t.Name, &t.NameAr, &specs, &capacity, &eligible, &active); err != nil {
		return model.Therapist{}, err
	}
	if err := json.Unmarshal([]byte(specs), &t.Specialties); err != nil {
		return model.Therapist{}, err
	}
	if err := json.Unmarshal([]byte(capacity), &t.Capacity); err != nil {
		return model.Therapist{}, err
	}
	t.SubstituteEligible = eligible == 1
	t.Active = active == 1
	return t, nil
}

func (s *SQLiteStore) Enrollment(ctx context.Context, id string) (model.Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, program_id, therapist_id, frequency, duration, start_date, end_date, status
         FROM enrollments WHERE id = ?`, id)
	e, err := scanEnrollment(row)
	if err == sql.ErrNoRows {
		return model.Enrollment{}, corestore.ErrNotFound
	}
	return e, err
}

func (s *SQLiteStore) EnrollmentsByTherapist(ctx context.Context, therapistID string, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error) {
	query := `SELECT id, student_id, program_id, therapist_id, frequency, duration, start_date, end_date, status
              FROM enrollments WHERE therapist_id = ?`
	args := []any{therapistID}
	if len(statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, int(st))
		}
		query += `)`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrollment(row scanner) (model.Enrollment, error) {
	var e model.Enrollment
	var start, end int64
	var status int
	if err := row.Scan(&e.ID, &e.StudentID, &e.ProgramID, &e.TherapistID, &e.FrequencyPerWeek, &e.DurationMinutes, &start, &end, &status); err != nil {
		return model.Enrollment{}, err
	}
	e.StartDate = time.Unix(start, 0)
	e.EndDate = time.Unix(end, 0)
	e.Status = model.EnrollmentStatus(status)
	return e, nil
}

func (s *SQLiteStore) SaveEnrollment(ctx context.Context, e model.Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO enrollments (id, student_id, program_id, therapist_id, frequency, duration, start_date, end_date, status)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StudentID, e.ProgramID, e.TherapistID, e.FrequencyPerWeek, e.DurationMinutes,
		e.StartDate.Unix(), e.EndDate.Unix(), int(e.Status))
	return err
}

func (s *SQLiteStore) Sessions(ctx context.Context, q corestore.SessionQuery) ([]model.ScheduledSession, error) {
	query := `SELECT id, enrollment_id, student_id, therapist_id, start_at, end_at, room, status, travel_minutes FROM sessions WHERE 1=1`
	var args []any
	if q.TherapistID != "" {
		query += ` AND therapist_id = ?`
		args = append(args, q.TherapistID)
	}
	if q.EnrollmentID != "" {
		query += ` AND enrollment_id = ?`
		args = append(args, q.EnrollmentID)
	}
	if !q.From.IsZero() {
		query += ` AND start_at >= ?`
		args = append(args, q.From.Unix())
	}
	if !q.To.IsZero() {
		query += ` AND start_at < ?`
		args = append(args, q.To.Unix())
	}
	if len(q.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range q.Statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, int(st))
		}
		query += `)`
	}
	query += ` ORDER BY start_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.ScheduledSession
	for rows.Next() {
		var sess model.ScheduledSession
		var start, end int64
		var status int
		if err := rows.Scan(&sess.ID, &sess.EnrollmentID, &sess.StudentID, &sess.TherapistID, &start, &end, &sess.Room, &status, &sess.TravelMinutes); err != nil {
			return nil, err
		}
		sess.Start = time.Unix(start, 0)
		sess.End = time.Unix(end, 0)
		sess.Status = model.SessionStatus(status)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess model.ScheduledSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, enrollment_id, student_id, therapist_id, start_at, end_at, room, status, travel_minutes)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.EnrollmentID, sess.StudentID, sess.TherapistID,
		sess.Start.Unix(), sess.End.Unix(), sess.Room, int(sess.Status), sess.TravelMinutes)
	return err
}

func (s *SQLiteStore) SaveAssignment(ctx context.Context, a corestore.Assignment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO assignments (id, therapist_id, student_id, program_id, frequency, duration, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TherapistID, a.StudentID, a.ProgramID, a.Frequency, a.Duration, a.CreatedAt.Unix())
	return err
}

func (s *SQLiteStore) DeleteAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return corestore.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Plan(ctx context.Context, id string) (corestore.PlanRecord, error) {
	var rec corestore.PlanRecord
	var payload string
	var updated int64
	err := s.db.QueryRowContext(ctx, `SELECT id, status, payload, updated_at FROM plans WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Status, &payload, &updated)
	if err == sql.ErrNoRows {
		return corestore.PlanRecord{}, corestore.ErrNotFound
	}
	if err != nil {
		return corestore.PlanRecord{}, err
	}
	rec.Payload = []byte(payload)
	rec.UpdatedAt = time.Unix(updated, 0)
	return rec, nil
}

func (s *SQLiteStore) SavePlan(ctx context.Context, rec corestore.PlanRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO plans (id, status, payload, updated_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Status, string(rec.Payload), rec.UpdatedAt.Unix())
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
