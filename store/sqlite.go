package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sicko7947/approvalflow"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const createSubmissionsTableSQL = `
CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	content         TEXT NOT NULL,
	image_reference TEXT,
	embedded_images TEXT,
	writer_email    TEXT,
	status          TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
	created_at      TEXT NOT NULL,
	created_at_ns   INTEGER NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status, created_at_ns);
`

const submissionColumns = `id, title, content, image_reference, embedded_images, writer_email, status, created_at, updated_at`

// SQLiteStore implements approvalflow.RecordStore on an embedded SQLite database
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLiteStore opens (and migrates) a SQLite store at the provided path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single connection serializes writers inside this process
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(createSubmissionsTableSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, sub *approvalflow.Submission) error {
	images, err := encodeImages(sub.EmbeddedImages)
	if err != nil {
		return approvalflow.NewPersistenceError("save submission", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return approvalflow.NewPersistenceError("save submission", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM submissions WHERE id = ?`, sub.ID).Scan(&exists)
	if err == nil {
		return approvalflow.NewConflictError(sub.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return approvalflow.NewPersistenceError("save submission", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO submissions (
		id, title, content, image_reference, embedded_images, writer_email,
		status, created_at, created_at_ns, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Title, sub.Content, nullString(sub.ImageReference), images, nullString(sub.WriterEmail),
		string(sub.Status), sub.CreatedAt.UTC().Format(timeFormat), sub.CreatedAt.UnixNano(),
		sub.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return approvalflow.NewPersistenceError("save submission", err)
	}

	if err := tx.Commit(); err != nil {
		return approvalflow.NewPersistenceError("save submission", err)
	}
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*approvalflow.Submission, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get submission: %w", err)
	}
	return sub, true, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]*approvalflow.Submission, error) {
	return s.query(ctx, `SELECT `+submissionColumns+` FROM submissions
		ORDER BY created_at_ns DESC, rowid DESC`)
}

func (s *SQLiteStore) GetByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error) {
	return s.query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE status = ? ORDER BY created_at_ns DESC, rowid DESC`, string(status))
}

func (s *SQLiteStore) Update(ctx context.Context, sub *approvalflow.Submission) error {
	images, err := encodeImages(sub.EmbeddedImages)
	if err != nil {
		return approvalflow.NewPersistenceError("update submission", err)
	}

	res, err := s.sqlDB.ExecContext(ctx, `UPDATE submissions SET
		title = ?, content = ?, image_reference = ?, embedded_images = ?, writer_email = ?,
		status = ?, created_at = ?, created_at_ns = ?, updated_at = ?
	WHERE id = ?`,
		sub.Title, sub.Content, nullString(sub.ImageReference), images, nullString(sub.WriterEmail),
		string(sub.Status), sub.CreatedAt.UTC().Format(timeFormat), sub.CreatedAt.UnixNano(),
		sub.UpdatedAt.UTC().Format(timeFormat), sub.ID,
	)
	if err != nil {
		return approvalflow.NewPersistenceError("update submission", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return approvalflow.NewPersistenceError("update submission", err)
	}
	if n == 0 {
		return approvalflow.NewNotFoundError(sub.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return false, approvalflow.NewPersistenceError("delete submission", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, approvalflow.NewPersistenceError("delete submission", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (approvalflow.StatusCounts, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return approvalflow.StatusCounts{}, fmt.Errorf("count submissions: %w", err)
	}
	defer rows.Close()

	var counts approvalflow.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return approvalflow.StatusCounts{}, fmt.Errorf("scan count: %w", err)
		}
		switch approvalflow.Status(status) {
		case approvalflow.StatusPending:
			counts.Pending = n
		case approvalflow.StatusApproved:
			counts.Approved = n
		case approvalflow.StatusRejected:
			counts.Rejected = n
		}
		counts.Total += n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) ClearAll(ctx context.Context) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, approvalflow.NewPersistenceError("clear submissions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, approvalflow.NewPersistenceError("clear submissions", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*approvalflow.Submission, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := []*approvalflow.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(scanner rowScanner) (*approvalflow.Submission, error) {
	var sub approvalflow.Submission
	var imageRef, images, writerEmail sql.NullString
	var status, createdAt, updatedAt string
	if err := scanner.Scan(
		&sub.ID, &sub.Title, &sub.Content, &imageRef, &images, &writerEmail,
		&status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	sub.ImageReference = imageRef.String
	sub.WriterEmail = writerEmail.String
	sub.Status = approvalflow.Status(status)

	var err error
	if sub.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sub.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &sub.EmbeddedImages); err != nil {
			return nil, fmt.Errorf("decode embedded_images: %w", err)
		}
	}
	return &sub, nil
}

func encodeImages(images []string) (sql.NullString, error) {
	if images == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(images)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode embedded_images: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ approvalflow.RecordStore = (*SQLiteStore)(nil)
