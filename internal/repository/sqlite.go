package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store on the cgo driver.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	return Open("sqlite3", dsn)
}

// Open creates a SQLite store using driver, which is "sqlite3"
// (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
func Open(driver, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,
		// No foreign key: details are only orphaned by a full reset, which clears both tables.
		`CREATE TABLE IF NOT EXISTS task_details (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (task_id, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_details_task ON task_details(task_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			messages TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			idem_key TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_idempotency_expires ON idempotency_keys(expires_at)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS login_attempts (
			ip_address TEXT PRIMARY KEY,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_attempt TEXT NOT NULL,
			locked_until TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.Title, string(task.Status), formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	return err
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, created_at, updated_at FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns every task ordered by creation time.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, status, created_at, updated_at FROM tasks ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus sets the status of a task. It reports whether the task exists.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, updatedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(updatedAt), taskID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// InsertDetail appends a detail unless the task already has one with identical
// content, in which case the existing row is returned. The bool reports whether
// a new row was created.
func (s *SQLiteStore) InsertDetail(ctx context.Context, detail *domain.TaskDetail) (*domain.TaskDetail, bool, error) {
	hash := contentHash(detail.Content)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task_details (id, task_id, content, content_hash, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (task_id, content_hash) DO NOTHING`,
		detail.ID, detail.TaskID, detail.Content, hash, formatTime(detail.CreatedAt))
	if err != nil {
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 1 {
		return detail, true, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, content, created_at FROM task_details WHERE task_id = ? AND content_hash = ?`,
		detail.TaskID, hash)
	existing, err := scanDetail(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing detail: %w", err)
	}
	return existing, false, nil
}

// ListDetails returns the details of a task ordered by creation time.
func (s *SQLiteStore) ListDetails(ctx context.Context, taskID string) ([]domain.TaskDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, content, created_at FROM task_details WHERE task_id = ? ORDER BY created_at ASC, rowid ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []domain.TaskDetail{}
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, rows.Err()
}

// GetConversation retrieves a conversation snapshot. A snapshot that no longer
// decodes is logged and returned as an empty history.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var raw, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT messages, updated_at FROM conversations WHERE id = ?`, conversationID).Scan(&raw, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	conv := &domain.Conversation{ID: conversationID, Messages: []domain.Message{}}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &conv.Messages); err != nil {
		log.Printf("WARN: conversation %s has an unreadable snapshot: %v", conversationID, err)
		conv.Messages = []domain.Message{}
	}
	return conv, nil
}

// SaveConversation replaces the snapshot for conv.ID.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	messages := conv.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, messages, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		conv.ID, string(data), formatTime(conv.UpdatedAt))
	return err
}

// GetIdempotencyRecord retrieves an idempotency record regardless of status or expiry.
func (s *SQLiteStore) GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	var status, createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT idem_key, status, response, created_at, expires_at FROM idempotency_keys WHERE idem_key = ?`,
		key).Scan(&rec.Key, &status, &rec.Response, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Status = domain.IdempotencyStatus(status)
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReserveIdempotencyKey inserts a pending record for key. It reports false when
// an unexpired record already holds the key.
func (s *SQLiteStore) ReserveIdempotencyKey(ctx context.Context, key string, now, expiresAt time.Time) (bool, error) {
	if err := s.DeleteExpiredIdempotencyKey(ctx, key, now); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (idem_key, status, response, created_at, expires_at) VALUES (?, ?, '', ?, ?)
		 ON CONFLICT (idem_key) DO NOTHING`,
		key, string(domain.IdempotencyStatusPending), formatTime(now), formatTime(expiresAt))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CompleteIdempotencyKey stores response under key. A pending reservation is
// completed; a record that is already complete is left untouched.
func (s *SQLiteStore) CompleteIdempotencyKey(ctx context.Context, key, response string, now, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (idem_key, status, response, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (idem_key) DO UPDATE SET status = excluded.status, response = excluded.response, expires_at = excluded.expires_at
		 WHERE idempotency_keys.status = ?`,
		key, string(domain.IdempotencyStatusComplete), response, formatTime(now), formatTime(expiresAt),
		string(domain.IdempotencyStatusPending))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseIdempotencyKey drops a pending reservation.
func (s *SQLiteStore) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE idem_key = ? AND status = ?`,
		key, string(domain.IdempotencyStatusPending))
	return err
}

// DeleteExpiredIdempotencyKey removes key if it expired at or before now.
func (s *SQLiteStore) DeleteExpiredIdempotencyKey(ctx context.Context, key string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE idem_key = ? AND expires_at <= ?`, key, formatTime(now))
	return err
}

// PurgeExpiredIdempotencyKeys removes every record that expired at or before now.
func (s *SQLiteStore) PurgeExpiredIdempotencyKeys(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, created_at, expires_at) VALUES (?, ?, ?)`,
		session.Token, formatTime(session.CreatedAt), formatTime(session.ExpiresAt))
	return err
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var session domain.Session
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT token, created_at, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&session.Token, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// PurgeExpiredSessions removes sessions that expired at or before now.
func (s *SQLiteStore) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetLoginAttempt retrieves the failed-login record for an address.
func (s *SQLiteStore) GetLoginAttempt(ctx context.Context, ipAddress string) (*domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt
	var lastAttempt string
	var lockedUntil sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT ip_address, attempts, last_attempt, locked_until FROM login_attempts WHERE ip_address = ?`,
		ipAddress).Scan(&attempt.IPAddress, &attempt.Attempts, &lastAttempt, &lockedUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if attempt.LastAttempt, err = parseTime(lastAttempt); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		t, err := parseTime(lockedUntil.String)
		if err != nil {
			return nil, err
		}
		attempt.LockedUntil = &t
	}
	return &attempt, nil
}

// UpsertLoginAttempt writes the failed-login record for an address.
func (s *SQLiteStore) UpsertLoginAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	var lockedUntil sql.NullString
	if attempt.LockedUntil != nil {
		lockedUntil = sql.NullString{String: formatTime(*attempt.LockedUntil), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_attempts (ip_address, attempts, last_attempt, locked_until) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ip_address) DO UPDATE SET attempts = excluded.attempts, last_attempt = excluded.last_attempt, locked_until = excluded.locked_until`,
		attempt.IPAddress, attempt.Attempts, formatTime(attempt.LastAttempt), lockedUntil)
	return err
}

// DeleteLoginAttempt clears the failed-login record for an address.
func (s *SQLiteStore) DeleteLoginAttempt(ctx context.Context, ipAddress string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE ip_address = ?`, ipAddress)
	return err
}

// GetSetting returns the value stored under name, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting stores value under name.
func (s *SQLiteStore) SetSetting(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, formatTime(time.Now()))
	return err
}

// ResetAll clears all user data in one transaction. Settings survive.
func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"task_details", "tasks", "conversations", "sessions", "login_attempts", "idempotency_keys"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status, createdAt, updatedAt string
	if err := row.Scan(&task.ID, &task.Title, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	var err error
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}

func scanDetail(row rowScanner) (*domain.TaskDetail, error) {
	var detail domain.TaskDetail
	var createdAt string
	if err := row.Scan(&detail.ID, &detail.TaskID, &detail.Content, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if detail.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &detail, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return t, nil
}
