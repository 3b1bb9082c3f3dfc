// Package sqlite stores execution traces in a SQLite database through the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aretw0/epa/pkg/domain"
	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the configuration used by Open.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// migrations are applied in order; PRAGMA user_version holds the count
// already applied.
var migrations = []string{
	`CREATE TABLE subjects (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL
	);
	CREATE TABLE transitions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		from_state TEXT NOT NULL,
		action TEXT NOT NULL,
		to_state TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_transitions_subject ON transitions(subject_id, seq);`,
	`ALTER TABLE transitions ADD COLUMN recorded_at TEXT NOT NULL DEFAULT '';`,
}

// Recorder implements ports.TraceStore on SQLite.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it.
// WAL and busy_timeout are set through the DSN so every pooled connection
// gets them.
func Open(path string, cfg Config) (*Recorder, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	r := &Recorder{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// SchemaVersion returns the number of applied migrations.
func (r *Recorder) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := r.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (r *Recorder) migrate(ctx context.Context) error {
	version, err := r.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Record appends t to the subject's trace.
func (r *Recorder) Record(ctx context.Context, subject domain.Subject, t domain.Transition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO subjects (id, type) VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET type = excluded.type
	`, int64(subject.ID), subject.Type); err != nil {
		return fmt.Errorf("sqlite: upsert subject: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO transitions (subject_id, from_state, action, to_state, recorded_at)
	VALUES (?, ?, ?, ?, ?)
	`, int64(subject.ID), string(t.From), string(t.Action), string(t.To), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite: insert transition: %w", err)
	}

	return tx.Commit()
}

// Subjects lists recorded subjects ordered by ID.
func (r *Recorder) Subjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subjects := []domain.Subject{}
	for rows.Next() {
		var id int64
		var s domain.Subject
		if err := rows.Scan(&id, &s.Type); err != nil {
			return nil, err
		}
		s.ID = domain.SubjectID(id)
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// Transitions returns one subject's trace in recording order.
func (r *Recorder) Transitions(ctx context.Context, id domain.SubjectID) ([]domain.Transition, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT from_state, action, to_state
	FROM transitions
	WHERE subject_id = ?
	ORDER BY seq
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite: read trace: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Transition
	for rows.Next() {
		var from, action, to string
		if err := rows.Scan(&from, &action, &to); err != nil {
			return nil, err
		}
		out = append(out, domain.Transition{From: domain.State(from), Action: domain.Action(action), To: domain.State(to)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrSubjectNotFound
	}
	return out, nil
}

// Clear deletes every recorded trace.
func (r *Recorder) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subjects`)
	return err
}
